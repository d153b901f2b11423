package points

import "github.com/prometheus/client_golang/prometheus"

// Check-in outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Recorder receives ledger events for metrics.
type Recorder interface {
	RecordCheckIn(outcome string)
	RecordAward(action Action, amount int64)
	RecordRedeem(amount int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordCheckIn(string)      {}
func (nopRecorder) RecordAward(Action, int64) {}
func (nopRecorder) RecordRedeem(int64)        {}

// PrometheusRecorder exports ledger events as Prometheus counters.
type PrometheusRecorder struct {
	checkIns *prometheus.CounterVec
	awarded  *prometheus.CounterVec
	redeemed prometheus.Counter
}

// NewPrometheusRecorder creates the counters and registers them on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staypoints_checkins_total",
			Help: "Daily check-in attempts by outcome.",
		}, []string{"outcome"}),
		awarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staypoints_points_awarded_total",
			Help: "Points credited by action.",
		}, []string{"action"}),
		redeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staypoints_points_redeemed_total",
			Help: "Points debited by redemptions.",
		}),
	}
	reg.MustRegister(r.checkIns, r.awarded, r.redeemed)
	return r
}

func (r *PrometheusRecorder) RecordCheckIn(outcome string) {
	r.checkIns.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRecorder) RecordAward(action Action, amount int64) {
	r.awarded.WithLabelValues(string(action)).Add(float64(amount))
}

func (r *PrometheusRecorder) RecordRedeem(amount int64) {
	r.redeemed.Add(float64(amount))
}
