// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server, match and limit settings.
//
// Every value has a default; environment variables override them.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string // CORS + websocket origin allow-list; "*" allows all
	StaticDir      string   // Optional directory served at "/" (the web client)
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		AllowedOrigins: []string{"*"},
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := getEnvList("ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		cfg.StaticDir = dir
	}

	return cfg
}

// =============================================================================
// MATCH CONFIGURATION
// =============================================================================

// MatchConfig holds the timing constants of a single match.
type MatchConfig struct {
	TickInterval        time.Duration // Bot simulation step (dt = TickInterval)
	ClockInterval       time.Duration // One round-timer second
	BotStartDelay       time.Duration // Delay between startGame and the first bot tick
	BotRespawnDelay     time.Duration // Bots come back this long after dying
	AttackLockDuration  time.Duration // Animation lock after a bot swing
	InitialWeaponSpawns int           // Weapons placed on the map when a match starts
	MaxPlayersCap       int           // Absolute upper bound for room capacity
	DefaultMaxPlayers   int
	DefaultRoundTime    int // seconds
	MinRoundTime        int
	MaxRoundTime        int
}

// DefaultMatch returns the default match configuration.
func DefaultMatch() MatchConfig {
	return MatchConfig{
		TickInterval:        100 * time.Millisecond,
		ClockInterval:       time.Second,
		BotStartDelay:       3 * time.Second,
		BotRespawnDelay:     3 * time.Second,
		AttackLockDuration:  400 * time.Millisecond,
		InitialWeaponSpawns: 10,
		MaxPlayersCap:       8,
		DefaultMaxPlayers:   4,
		DefaultRoundTime:    180,
		MinRoundTime:        30,
		MaxRoundTime:        900,
	}
}

// MatchFromEnv returns match configuration with environment variable overrides.
func MatchFromEnv() MatchConfig {
	cfg := DefaultMatch()

	if d := getEnvDuration("TICK_INTERVAL_MS", 0); d > 0 {
		cfg.TickInterval = d
	}
	if d := getEnvDuration("BOT_START_DELAY_MS", -1); d >= 0 {
		cfg.BotStartDelay = d
	}
	if d := getEnvDuration("BOT_RESPAWN_DELAY_MS", 0); d > 0 {
		cfg.BotRespawnDelay = d
	}
	if n := getEnvInt("INITIAL_WEAPON_SPAWNS", -1); n >= 0 {
		cfg.InitialWeaponSpawns = n
	}
	if rt := getEnvInt("DEFAULT_ROUND_TIME", 0); rt > 0 {
		cfg.DefaultRoundTime = rt
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxRooms           int     // Hard cap on concurrently open rooms
	MaxWSConnections   int     // Total websocket connections
	MaxWSPerIP         int     // Websocket connections per client IP
	MessagesPerSecond  float64 // Per-connection inbound message rate
	MessageBurst       int
	MaxMessageBytes    int64 // Read limit for a single websocket frame
	MaxWeaponSpawns    int   // Upper bound on a room's spawn list
	HTTPRequestsPerSec float64
	HTTPBurst          int
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxRooms:           500,
		MaxWSConnections:   4000,
		MaxWSPerIP:         10,
		MessagesPerSecond:  60, // gameUpdate at 30Hz plus attacks/damage claims
		MessageBurst:       120,
		MaxMessageBytes:    16 * 1024,
		MaxWeaponSpawns:    64,
		HTTPRequestsPerSec: 10,
		HTTPBurst:          20,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if n := getEnvInt("MAX_ROOMS", 0); n > 0 {
		cfg.MaxRooms = n
	}
	if n := getEnvInt("MAX_WS_CONNECTIONS", 0); n > 0 {
		cfg.MaxWSConnections = n
	}
	if n := getEnvInt("MAX_WS_PER_IP", 0); n > 0 {
		cfg.MaxWSPerIP = n
	}
	if r := getEnvFloat("WS_MESSAGES_PER_SEC", 0); r > 0 {
		cfg.MessagesPerSecond = r
	}
	if b := getEnvInt("WS_MESSAGE_BURST", 0); b > 0 {
		cfg.MessageBurst = b
	}
	if r := getEnvFloat("HTTP_REQUESTS_PER_SEC", 0); r > 0 {
		cfg.HTTPRequestsPerSec = r
	}
	if b := getEnvInt("HTTP_BURST", 0); b > 0 {
		cfg.HTTPBurst = b
	}

	return cfg
}

// =============================================================================
// DATA & OBSERVABILITY
// =============================================================================

// DataConfig points at optional on-disk inputs and outputs.
type DataConfig struct {
	WeaponDataPath string // Empty = embedded catalog
	EventLogPath   string // Empty = combat journal disabled
}

// DataFromEnv reads data paths from the environment.
func DataFromEnv() DataConfig {
	return DataConfig{
		WeaponDataPath: os.Getenv("WEAPON_DATA_PATH"),
		EventLogPath:   os.Getenv("EVENT_LOG_PATH"),
	}
}

// ObservabilityConfig controls the debug server.
type ObservabilityConfig struct {
	DebugAddr    string // localhost only
	DebugEnabled bool
}

// ObservabilityFromEnv returns observability settings.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := ObservabilityConfig{
		DebugAddr:    "127.0.0.1:6060",
		DebugEnabled: true,
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	if getEnvBool("DISABLE_DEBUG_SERVER", false) {
		cfg.DebugEnabled = false
	}
	return cfg
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// LogFromEnv returns logging settings.
func LogFromEnv() LogConfig {
	cfg := LogConfig{Level: "info", Format: "json"}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Level = strings.ToLower(lvl)
	}
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		cfg.Format = strings.ToLower(f)
	}
	return cfg
}

// NewLogger builds a zap logger. Unknown levels fall back to info; any
// format other than json gets the colored console encoder.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if c.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server        ServerConfig
	Match         MatchConfig
	Limits        ResourceLimits
	Data          DataConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:        ServerFromEnv(),
		Match:         MatchFromEnv(),
		Limits:        LimitsFromEnv(),
		Data:          DataFromEnv(),
		Observability: ObservabilityFromEnv(),
		Log:           LogFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads an integer number of milliseconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
