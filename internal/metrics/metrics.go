package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "vaxbook"

// Recorder exposes scheduling metrics on a prometheus registry.
type Recorder struct {
	bookings      *prometheus.CounterVec
	searchOffset  prometheus.Histogram
	dosesReserved prometheus.Counter
	lotDoses      *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking attempts by mode and outcome.",
		}, []string{"mode", "outcome"}),
		searchOffset: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_search_offset_days",
			Help:      "Days between the requested date and the first dose found by the auto-scheduler.",
			Buckets:   prometheus.LinearBuckets(0, 1, 7),
		}),
		dosesReserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "doses_reserved_total",
			Help:      "Doses taken from stock by booked appointments.",
		}),
		lotDoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lot_doses_received_total",
			Help:      "Doses received through vaccine lots, by center.",
		}, []string{"center"}),
	}

	for _, c := range []prometheus.Collector{r.bookings, r.searchOffset, r.dosesReserved, r.lotDoses} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObserveBooking(mode, outcome string) {
	r.bookings.WithLabelValues(mode, outcome).Inc()
}

func (r *Recorder) ObserveSearchOffset(days int) {
	r.searchOffset.Observe(float64(days))
}

func (r *Recorder) AddReservedDoses(n int) {
	if n > 0 {
		r.dosesReserved.Add(float64(n))
	}
}

func (r *Recorder) AddLotDoses(center string, doses int) {
	if doses > 0 {
		r.lotDoses.WithLabelValues(center).Add(float64(doses))
	}
}

