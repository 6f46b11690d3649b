package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apierrors "eventdash/internal/errors"
	"eventdash/internal/infrastructure"
	custommw "eventdash/internal/middleware"
	"eventdash/internal/services"
	httptransport "eventdash/internal/transport/http"
	"eventdash/pkg/contracts/domain"
)

// sendBuffer is the number of outbound frames queued per session
const sendBuffer = 16

// Querier answers selections. *services.DashboardService implements it.
type Querier interface {
	Options(ctx context.Context) (domain.SelectorDomains, error)
	Query(ctx context.Context, filters domain.Filters, source string) (*domain.Dashboard, error)
}

// SessionConfig holds the per-connection limits and keepalive timing
type SessionConfig struct {
	MaxMessageSize int64
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
}

// DefaultSessionConfig returns the limits used for zero fields
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxMessageSize: 4096,
		PingPeriod:     54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = d.PingPeriod
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	return c
}

// Session is one interactive dashboard connection. The client sends a
// filter selection as JSON and receives one dashboard message per
// selection, in order. The first frame lists the selector domains.
type Session struct {
	id        string
	conn      Connection
	querier   Querier
	validator *custommw.Validator
	cfg       SessionConfig
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger

	send chan []byte
	done chan struct{}

	// owned by the read pump
	sequence int64
	received int64
	// owned by the write pump
	sent int64

	connectedAt time.Time
}

// NewSession creates a session over conn. validator, metrics and logger
// may be nil.
func NewSession(conn Connection, querier Querier, validator *custommw.Validator, cfg SessionConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if validator == nil {
		validator = custommw.NewValidator()
	}

	id := uuid.New().String()
	return &Session{
		id:        id,
		conn:      conn,
		querier:   querier,
		validator: validator,
		cfg:       cfg.withDefaults(),
		metrics:   metrics,
		logger: logger.With(
			slog.String("component", "websocket.session"),
			slog.String("remote_addr", conn.RemoteAddr()),
		),
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

// ID returns the session identifier sent in every frame
func (s *Session) ID() string {
	return s.id
}

// Run serves the session until the peer goes away or ctx is cancelled
func (s *Session) Run(ctx context.Context) {
	ctx = infrastructure.WithSessionID(ctx, s.id)
	if s.metrics != nil {
		s.metrics.SessionsActive.Add(ctx, 1)
		defer s.metrics.SessionsActive.Add(context.WithoutCancel(ctx), -1)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
		case <-stop:
		}
	}()

	s.logger.InfoContext(ctx, "session opened")

	go s.writePump(ctx)
	s.readPump(ctx)
	<-s.done

	s.logger.InfoContext(ctx, "session closed",
		slog.Duration("duration", time.Since(s.connectedAt)),
		slog.Int64("messages_received", s.received),
		slog.Int64("messages_sent", s.sent))
}

func (s *Session) readPump(ctx context.Context) {
	defer close(s.send)

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	if !s.enqueue(ctx, s.options(ctx)) {
		return
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WarnContext(ctx, "unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		s.received++
		if s.metrics != nil {
			s.metrics.SessionMessages.Add(ctx, 1)
		}

		if !s.enqueue(ctx, s.handle(ctx, data)) {
			return
		}
	}
}

func (s *Session) options(ctx context.Context) Message {
	domains, err := s.querier.Options(ctx)
	if err != nil {
		return errorMessage(err)
	}
	return optionsMessage(domains)
}

// handle answers one selection frame
func (s *Session) handle(ctx context.Context, data []byte) Message {
	var q httptransport.DashboardQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return errorMessage(apierrors.ErrInvalidRequest.
			WithMessage("Message is not a filter selection").
			WithDetails(err.Error()))
	}

	filters, err := q.Resolve(s.validator)
	if err != nil {
		return errorMessage(err)
	}

	dashboard, err := s.querier.Query(ctx, filters, services.SourceWebSocket)
	if err != nil {
		s.logger.ErrorContext(ctx, "session query failed",
			slog.String("error", err.Error()),
			slog.Any("filters", filters))
		return errorMessage(err)
	}
	return dashboardMessage(dashboard)
}

// enqueue stamps and queues msg. It reports false once the write pump
// has stopped.
func (s *Session) enqueue(ctx context.Context, msg Message) bool {
	s.sequence++
	msg.SessionID = s.id
	msg.Sequence = s.sequence
	msg.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode message",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return true
	}

	select {
	case s.send <- payload:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		close(s.done)
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.DebugContext(ctx, "write failed", slog.String("error", err.Error()))
				return
			}
			s.sent++

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.DebugContext(ctx, "ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
