// Package metrics holds the Prometheus collectors shared by the room and
// transport layers. Label values are bounded; nothing is labelled per
// player or per room.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Match metrics
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_rooms_active",
		Help: "Rooms currently open",
	})

	matchesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_matches_active",
		Help: "Rooms currently playing a round",
	})

	playersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_players_connected",
		Help: "Human players seated in a room",
	})

	botTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_bot_tick_duration_seconds",
		Help:    "Time spent in one room's bot simulation step",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	damageApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_damage_applied_total",
		Help: "Damage points applied by the combat engine",
	}, []string{"source"}) // Bounded: "human", "bot"

	kills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_kills_total",
		Help: "Deaths accounted by the combat engine",
	})

	damageRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_damage_rejected_total",
		Help: "Damage claims discarded before reaching the combat engine",
	}, []string{"reason"}) // Bounded: "bot_attacker", "unknown_attacker", "non_positive", "not_playing"

	roomErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_room_errors_total",
		Help: "Requests answered with roomError",
	}, []string{"kind"})

	// Transport metrics
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit", "codec"

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket messages by direction",
	}, []string{"direction"}) // Bounded: "in", "out", "dropped", "invalid"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
)

// SetRooms updates the open-room gauge.
func SetRooms(n int) { roomsActive.Set(float64(n)) }

// MatchStarted and MatchEnded track rooms in the playing state.
func MatchStarted() { matchesActive.Inc() }
func MatchEnded()   { matchesActive.Dec() }

// PlayerSeated and PlayerLeft track humans inside rooms.
func PlayerSeated() { playersConnected.Inc() }
func PlayerLeft()   { playersConnected.Dec() }

// ObserveBotTick records one bot simulation step.
func ObserveBotTick(d time.Duration) { botTickDuration.Observe(d.Seconds()) }

// RecordDamage counts applied damage by attacker kind.
func RecordDamage(fromBot bool, amount int) {
	source := "human"
	if fromBot {
		source = "bot"
	}
	damageApplied.WithLabelValues(source).Add(float64(amount))
}

// RecordKill counts an accounted death.
func RecordKill() { kills.Inc() }

// RecordDamageRejected counts a discarded damage claim.
func RecordDamageRejected(reason string) { damageRejected.WithLabelValues(reason).Inc() }

// RecordRoomError counts a roomError reply by sentinel kind.
func RecordRoomError(kind string) { roomErrors.WithLabelValues(kind).Inc() }

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) { connectionRejected.WithLabelValues(reason).Inc() }

// SetWSConnections updates the websocket gauge.
func SetWSConnections(n int) { wsConnectionsActive.Set(float64(n)) }

// RecordWSMessage counts a websocket frame.
func RecordWSMessage(direction string) { wsMessagesTotal.WithLabelValues(direction).Inc() }

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}
