package api

import (
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"arena-brawl/internal/config"
	"arena-brawl/internal/metrics"
)

// StartDebugServer starts the internal observability server (pprof and
// Prometheus). It refuses non-loopback addresses. The returned server is nil
// when the debug server is disabled.
func StartDebugServer(cfg config.ObservabilityConfig, log *zap.Logger) (*http.Server, error) {
	if !cfg.DebugEnabled {
		log.Info("debug server disabled")
		return nil, nil
	}
	if !isLoopback(cfg.DebugAddr) {
		log.Warn("debug server forced to localhost", zap.String("requested", cfg.DebugAddr))
		cfg.DebugAddr = "127.0.0.1:6060"
	}

	srv := &http.Server{
		Addr:              cfg.DebugAddr,
		Handler:           debugMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.DebugAddr)
	if err != nil {
		return nil, err
	}
	go func() {
		log.Info("debug server listening",
			zap.String("pprof", "http://"+cfg.DebugAddr+"/debug/pprof/"),
			zap.String("metrics", "http://"+cfg.DebugAddr+"/metrics"),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("debug server stopped", zap.Error(err))
		}
	}()
	return srv, nil
}

func debugMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// metricsMiddleware records latency per route pattern, never per raw path.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
