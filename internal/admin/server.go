package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/command"
	"github.com/airswap/airswap-bot/internal/metrics"
)

// Health is the /healthz body.
type Health struct {
	Phase         string            `json:"phase"`
	Healthy       bool              `json:"healthy"`
	Chains        map[string]string `json:"chains"`
	Channels      []string          `json:"channels"`
	Subscriptions []string          `json:"subscriptions"`
	LastRestart   *time.Time        `json:"last_restart,omitempty"`
}

// Commander runs operator commands.
type Commander interface {
	Run(text string) (string, error)
}

// Handler serves /healthz, /metrics and POST /command.
func Handler(health func() Health, commander Commander, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := health()
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		text := strings.TrimSpace(string(body))
		reply, err := commander.Run(text)
		if err != nil {
			if !errors.Is(err, command.ErrUnknownCommand) {
				logger.Warn("command failed", zap.String("command", text), zap.Error(err))
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		logger.Info("command handled", zap.String("command", text), zap.String("reply", reply))
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve starts the admin server in the background.
func Serve(addr string, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server stopped", zap.Error(err))
		}
	}()
	return srv
}

// Shutdown gracefully shuts down the admin server.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
