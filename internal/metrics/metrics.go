package metrics

import (
	"sync"
	"time"
)

/* Metrics collects in-process request and computation statistics */
type Metrics struct {
	mu sync.RWMutex

	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	TotalResponseTime time.Duration
	MinResponseTime   time.Duration
	MaxResponseTime   time.Duration

	EndpointCounts map[string]int64
	EndpointErrors map[string]int64

	Computations  int64
	NotComputable map[string]int64
	ActiveSockets int

	ErrorCounts map[string]int64
}

var globalMetrics = NewMetrics()

/* NewMetrics creates a new metrics instance */
func NewMetrics() *Metrics {
	return &Metrics{
		EndpointCounts:  make(map[string]int64),
		EndpointErrors:  make(map[string]int64),
		NotComputable:   make(map[string]int64),
		ErrorCounts:     make(map[string]int64),
		MinResponseTime: time.Hour,
	}
}

/* GetGlobalMetrics returns the global metrics instance */
func GetGlobalMetrics() *Metrics {
	return globalMetrics
}

/* RecordRequest records a request */
func (m *Metrics) RecordRequest(endpoint string, success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
		m.EndpointErrors[endpoint]++
	}

	m.EndpointCounts[endpoint]++
	m.TotalResponseTime += duration

	if duration < m.MinResponseTime {
		m.MinResponseTime = duration
	}
	if duration > m.MaxResponseTime {
		m.MaxResponseTime = duration
	}
}

/* RecordComputation records one computation pass and the metrics it could not compute */
func (m *Metrics) RecordComputation(notComputable ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Computations++
	for _, name := range notComputable {
		m.NotComputable[name]++
	}
}

/* RecordError records an error */
func (m *Metrics) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCounts[errorType]++
}

/* AddActiveSockets adjusts the open websocket count */
func (m *Metrics) AddActiveSockets(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ActiveSockets += delta
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

/* GetStats returns current statistics */
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avgResponseTime := time.Duration(0)
	minResponseTime := time.Duration(0)
	if m.TotalRequests > 0 {
		avgResponseTime = m.TotalResponseTime / time.Duration(m.TotalRequests)
		minResponseTime = m.MinResponseTime
	}

	return map[string]interface{}{
		"requests": map[string]interface{}{
			"total":      m.TotalRequests,
			"successful": m.SuccessfulRequests,
			"failed":     m.FailedRequests,
		},
		"response_time": map[string]interface{}{
			"avg_ms": avgResponseTime.Milliseconds(),
			"min_ms": minResponseTime.Milliseconds(),
			"max_ms": m.MaxResponseTime.Milliseconds(),
		},
		"computations": map[string]interface{}{
			"total":          m.Computations,
			"not_computable": copyCounts(m.NotComputable),
		},
		"connections": map[string]interface{}{
			"websocket": m.ActiveSockets,
		},
		"endpoints": copyCounts(m.EndpointCounts),
		"errors":    copyCounts(m.ErrorCounts),
	}
}

/* Reset resets all metrics */
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.SuccessfulRequests = 0
	m.FailedRequests = 0
	m.TotalResponseTime = 0
	m.MinResponseTime = time.Hour
	m.MaxResponseTime = 0
	m.Computations = 0
	m.EndpointCounts = make(map[string]int64)
	m.EndpointErrors = make(map[string]int64)
	m.NotComputable = make(map[string]int64)
	m.ErrorCounts = make(map[string]int64)
}
