package handlers

import (
	"net/http"
	"net/url"

	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/logging"
	"github.com/swa/agilemetrics/internal/validation"
)

/* FlowHandlers serves flow metrics computed from the current snapshot */
type FlowHandlers struct {
	store    *dashboard.Store
	defaults dashboard.Defaults
	logger   *logging.Logger
}

/* NewFlowHandlers creates new flow handlers */
func NewFlowHandlers(store *dashboard.Store, defaults dashboard.Defaults, logger *logging.Logger) *FlowHandlers {
	return &FlowHandlers{
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// SelectionFromQuery reads min_date, max_date, hourly_bound and repeated
// exclude parameters. An absent exclude keeps the default exclusions; a
// present but empty one (exclude=) excludes nothing.
func SelectionFromQuery(q url.Values) dashboard.SelectionRequest {
	req := dashboard.SelectionRequest{
		MinDate:     q.Get("min_date"),
		MaxDate:     q.Get("max_date"),
		HourlyBound: q.Get("hourly_bound"),
	}
	if values, ok := q["exclude"]; ok {
		req.Exclude = append([]string{}, values...)
	}
	return req
}

// resolve returns the snapshot and resolved selection for r
func (h *FlowHandlers) resolve(r *http.Request) (*dashboard.Snapshot, dashboard.Selection, error) {
	snap, err := h.store.Current()
	if err != nil {
		return nil, dashboard.Selection{}, err
	}
	sel, err := SelectionFromQuery(r.URL.Query()).Resolve(snap, h.defaults)
	if err != nil {
		return nil, dashboard.Selection{}, err
	}
	return snap, sel, nil
}

/* GetExtent returns the selectable date range, live columns and defaults */
func (h *FlowHandlers) GetExtent(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Current()
	if err != nil {
		WriteRequestError(w, r, err)
		return
	}
	WriteSuccess(w, dashboard.Describe(snap, h.defaults), http.StatusOK)
}

/* GetReport computes the full report; format=text returns a plain summary */
func (h *FlowHandlers) GetReport(w http.ResponseWriter, r *http.Request) {
	snap, sel, err := h.resolve(r)
	if err != nil {
		WriteRequestError(w, r, err)
		return
	}
	report := dashboard.Build(snap, sel)

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		WriteSuccess(w, report, http.StatusOK)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteText(w); err != nil {
			h.logger.Error("Failed to write text report", err, nil)
		}
	default:
		WriteRequestError(w, r, validation.NewError("format", "must be json or text, got %q", format))
	}
}

/* GetLeadTime computes only the lead time statistics */
func (h *FlowHandlers) GetLeadTime(w http.ResponseWriter, r *http.Request) {
	snap, sel, err := h.resolve(r)
	if err != nil {
		WriteRequestError(w, r, err)
		return
	}
	WriteSuccess(w, dashboard.BuildLeadTime(snap, sel), http.StatusOK)
}
