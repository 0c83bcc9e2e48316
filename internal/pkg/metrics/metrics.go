package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 是 roomwire 自己的指标注册表，不使用全局的 DefaultRegisterer，
// 避免测试之间相互污染。
var Registry = prometheus.NewRegistry()

// 定义指标变量
var (
	// ConnectionState 记录每个订阅端点当前所处的连接状态
	// 当前状态为 1，其余状态为 0
	ConnectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roomwire_ws_connection_state",
			Help: "Current connection state per endpoint (1 for the active state, 0 otherwise).",
		},
		[]string{"endpoint", "state"},
	)

	// ReconnectAttempts 记录当前的重连计数
	ReconnectAttempts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roomwire_ws_reconnect_attempts",
			Help: "Automatic reconnect attempts since the last successful open.",
		},
		[]string{"endpoint"},
	)

	// ReconnectsScheduled 记录已调度的自动重连次数
	ReconnectsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomwire_ws_reconnects_scheduled_total",
			Help: "Total number of automatic reconnects scheduled.",
		},
		[]string{"endpoint"},
	)

	// FramesReceived 记录收到的帧数量
	FramesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomwire_ws_frames_received_total",
			Help: "Total number of frames received.",
		},
		[]string{"endpoint", "kind"}, // kind: structured/raw
	)

	// MessagesSent 记录发送结果
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomwire_ws_messages_sent_total",
			Help: "Total number of outbound messages by result.",
		},
		[]string{"endpoint", "status"}, // status: success/failed/dropped
	)
)

// Label values used with the collectors above.
const (
	KindStructured = "structured"
	KindRaw        = "raw"

	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
)

func init() {
	Registry.MustRegister(
		ConnectionState,
		ReconnectAttempts,
		ReconnectsScheduled,
		FramesReceived,
		MessagesSent,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// SetConnectionState marks state as the active state of endpoint.
func SetConnectionState(endpoint, state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		ConnectionState.WithLabelValues(endpoint, s).Set(v)
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
