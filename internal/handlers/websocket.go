package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/swa/agilemetrics/internal/auth"
	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/metrics"
	"github.com/swa/agilemetrics/internal/middleware"
	"github.com/swa/agilemetrics/internal/validation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware governs browser origins
	},
}

// Message types exchanged on the flow websocket
const (
	MessageSelect    = "select"
	MessageLeadTime  = "lead_time"
	MessageExtent    = "extent"
	MessageReport    = "report"
	MessageConnected = "connected"
	MessageError     = "error"
)

/*
 * FlowRequest is a client message. The selection fields sit next to type:
 *   {"type":"select","min_date":"2024-03-01","exclude":["Done"]}
 * An empty type is treated as select.
 */
type FlowRequest struct {
	Type string `json:"type"`
	dashboard.SelectionRequest
}

/* FlowResponse is a server message */
type FlowResponse struct {
	Type      string                `json:"type"`
	Report    *dashboard.Report     `json:"report,omitempty"`
	LeadTime  *dashboard.LeadTime   `json:"lead_time,omitempty"`
	Extent    *dashboard.ExtentInfo `json:"extent,omitempty"`
	Error     string                `json:"error,omitempty"`
	Code      string                `json:"code,omitempty"`
	Field     string                `json:"field,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

func errorMessage(err error) FlowResponse {
	resp := FlowResponse{Type: MessageError, Error: err.Error()}
	if verr, ok := validation.AsValidationError(err); ok {
		resp.Code = CodeValidation
		resp.Field = verr.Field
	} else if errors.Is(err, dashboard.ErrNoSnapshot) {
		resp.Code = CodeNoSnapshot
	}
	return resp
}

// Answer computes the response to one client message against the current
// snapshot.
func (h *FlowHandlers) Answer(req FlowRequest) FlowResponse {
	snap, err := h.store.Current()
	if err != nil {
		return errorMessage(err)
	}

	switch req.Type {
	case MessageExtent:
		extent := dashboard.Describe(snap, h.defaults)
		return FlowResponse{Type: MessageExtent, Extent: &extent}
	case "", MessageSelect, MessageLeadTime:
	default:
		return errorMessage(validation.NewError("type", "unknown message type %q", req.Type))
	}

	sel, err := req.Resolve(snap, h.defaults)
	if err != nil {
		return errorMessage(err)
	}
	if req.Type == MessageLeadTime {
		lt := dashboard.BuildLeadTime(snap, sel)
		return FlowResponse{Type: MessageLeadTime, LeadTime: &lt}
	}
	return FlowResponse{Type: MessageReport, Report: dashboard.Build(snap, sel)}
}

// FlowWebSocket answers selections over a websocket. Each client message is
// answered in order with one response.
func (h *FlowHandlers) FlowWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	stats := metrics.GetGlobalMetrics()
	stats.AddActiveSockets(1)
	defer stats.AddActiveSockets(-1)

	requestID := middleware.GetRequestID(r.Context())
	fields := map[string]interface{}{"request_id": requestID}
	if subject, ok := auth.GetSubjectFromContext(r.Context()); ok {
		fields["subject"] = subject
	}
	logger := h.logger.With(fields)
	logger.Debug("Flow WebSocket connected", nil)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	messages := make(chan []byte)
	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("WebSocket read failed", map[string]interface{}{"error": err.Error()})
				}
				return
			}
			select {
			case messages <- data:
			case <-stop:
				return
			}
		}
	}()

	write := func(resp FlowResponse) error {
		resp.RequestID = requestID
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(resp)
	}

	hello := FlowResponse{Type: MessageConnected}
	if snap, err := h.store.Current(); err == nil {
		extent := dashboard.Describe(snap, h.defaults)
		hello.Extent = &extent
	}
	if err := write(hello); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-messages:
			start := time.Now()
			var req FlowRequest
			var resp FlowResponse
			if err := json.Unmarshal(data, &req); err != nil {
				resp = errorMessage(validation.NewError("message", "invalid JSON: %v", err))
			} else {
				resp = h.Answer(req)
			}
			stats.RecordRequest("ws:"+resp.Type, resp.Type != MessageError, time.Since(start))
			if err := write(resp); err != nil {
				logger.Warn("WebSocket write failed", map[string]interface{}{"error": err.Error()})
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
