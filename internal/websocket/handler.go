package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"eventdash/internal/config"
	apierrors "eventdash/internal/errors"
	"eventdash/internal/infrastructure"
	custommw "eventdash/internal/middleware"
)

// Handler upgrades GET /ws requests into interactive sessions and keeps
// track of the open ones so shutdown can close them.
type Handler struct {
	upgrader  websocket.Upgrader
	querier   Querier
	validator *custommw.Validator
	cfg       SessionConfig
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHandler creates the session endpoint. allowedOrigins lists the
// accepted Origin headers; "*" accepts any, an empty list accepts only
// same-host requests.
func NewHandler(querier Querier, cfg config.WebSocketConfig, allowedOrigins []string, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		querier:   querier,
		validator: custommw.NewValidator(),
		cfg: SessionConfig{
			MaxMessageSize: cfg.MaxMessageSize,
			PingPeriod:     cfg.PingPeriod,
			PongWait:       cfg.PongWait,
			WriteWait:      cfg.WriteWait,
		},
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "websocket.handler")),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// ServeHTTP upgrades the connection and blocks until the session ends
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("code", apierrors.ErrWebSocketUpgrade.ErrorCode),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		return
	}

	ctx := infrastructure.WithTraceID(h.ctx, reqID)
	session := NewSession(WrapConn(conn), h.querier, h.validator, h.cfg, h.metrics,
		h.logger.With(slog.String("request_id", reqID)))

	h.track(session)
	defer h.untrack(session)

	session.Run(ctx)
}

// Active returns the number of open sessions
func (h *Handler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown closes every open session. Sessions are hijacked connections,
// so http.Server.Shutdown does not wait for them.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	n := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("closing websocket sessions", slog.Int("sessions", n))
	h.cancel()
}

func (h *Handler) track(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = s
}

func (h *Handler) untrack(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.ID())
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
