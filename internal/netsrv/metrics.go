package netsrv

import "github.com/prometheus/client_golang/prometheus"

var (
	connsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peerd",
		Subsystem: "net",
		Name:      "connections_open",
		Help:      "Currently open TCP connections",
	})

	connModeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerd",
			Subsystem: "net",
			Name:      "connection_modes_total",
			Help:      "Connections by detected protocol mode",
		},
		[]string{"mode"},
	)

	signalLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerd",
			Subsystem: "net",
			Name:      "signal_lines_total",
			Help:      "Signaling lines processed, by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(connsOpen, connModeTotal, signalLinesTotal)
}
