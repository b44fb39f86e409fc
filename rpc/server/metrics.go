package server

import (
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/bronzeKV/rpc/protocol"
	"github.com/VictoriaMetrics/metrics"
)

// serverActions are the actions metrics are kept for
var serverActions = []protocol.Action{
	protocol.ActionSet,
	protocol.ActionGet,
	protocol.ActionDelete,
	protocol.ActionScan,
	protocol.ActionPing,
	protocol.ActionNoResponse,
	protocol.ActionUnknown,
}

// actionMetrics holds the metrics of a single action
type actionMetrics struct {
	requests *metrics.Counter
	errors   *metrics.Counter
	duration *metrics.Histogram
}

// serverMetrics holds the request metrics of one server. Every server has its
// own metrics.Set so multiple servers in one process (tests) do not collide.
//
// Thread-safety: All methods are safe for concurrent use.
type serverMetrics struct {
	set     *metrics.Set
	actions map[protocol.Action]*actionMetrics
}

// newServerMetrics registers all metrics, activeConns backs the connection gauge
func newServerMetrics(activeConns func() int) *serverMetrics {
	m := &serverMetrics{
		set:     metrics.NewSet(),
		actions: make(map[protocol.Action]*actionMetrics, len(serverActions)),
	}

	for _, action := range serverActions {
		m.actions[action] = &actionMetrics{
			requests: m.set.NewCounter(fmt.Sprintf(`bkv_requests_total{action=%q}`, action)),
			errors:   m.set.NewCounter(fmt.Sprintf(`bkv_request_errors_total{action=%q}`, action)),
			duration: m.set.NewHistogram(fmt.Sprintf(`bkv_request_duration_seconds{action=%q}`, action)),
		}
	}

	m.set.NewGauge("bkv_active_connections", func() float64 {
		return float64(activeConns())
	})

	return m
}

// observe records one handled request. Unknown actions always count as errors.
func (m *serverMetrics) observe(action protocol.Action, start time.Time, err error) {
	am, ok := m.actions[action]
	if !ok {
		am = m.actions[protocol.ActionUnknown]
	}

	am.requests.Inc()
	am.duration.Update(time.Since(start).Seconds())
	if err != nil {
		am.errors.Inc()
	}
}

// errorCount returns the number of failed requests for action
func (m *serverMetrics) errorCount(action protocol.Action) uint64 {
	return m.actions[action].errors.Get()
}

// requestCount returns the number of handled requests for action
func (m *serverMetrics) requestCount(action protocol.Action) uint64 {
	return m.actions[action].requests.Get()
}

// writePrometheus writes the server metrics followed by the process metrics
func (m *serverMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
	metrics.WritePrometheus(w, true)
}
