package retry

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Reconnectable is the part of a connection the reconnect strategy drives
type Reconnectable interface {
	InTransaction() bool
	Connect(ctx context.Context) error
	Disconnect() error
}

// DefaultDisconnectMarkers are error message fragments, matched
// case-sensitively, that mean the server side of the session is gone.
var DefaultDisconnectMarkers = []string{
	"gone away",
	"Lost connection",
	"closed the connection unexpectedly",
	"closed unexpectedly",
	"deadlock avoided",
	"decryption failed or bad record mac",
	"is dead or not enabled",
	"no connection to the server",
	"query_wait_timeout",
	"reset by peer",
	"terminate due to client_idle_limit",
	"while sending",
	"writing data failed",
	"bad connection",
	"broken pipe",
	"invalid connection",
}

// ReconnectStrategy retries errors caused by a dropped connection after
// re-establishing it. It never reconnects inside a transaction: the server
// has already discarded the transaction's work.
type ReconnectStrategy struct {
	conn    Reconnectable
	markers []string
	logger  *slog.Logger
	name    string
}

// ReconnectOption configures a ReconnectStrategy
type ReconnectOption func(*ReconnectStrategy)

// WithLogger sets the logger for reconnect events
func WithLogger(l *slog.Logger) ReconnectOption {
	return func(s *ReconnectStrategy) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConnectionName labels reconnect events
func WithConnectionName(name string) ReconnectOption {
	return func(s *ReconnectStrategy) {
		s.name = name
	}
}

// WithMarkers adds message fragments to the default list
func WithMarkers(markers ...string) ReconnectOption {
	return func(s *ReconnectStrategy) {
		s.markers = append(s.markers, markers...)
	}
}

// NewReconnectStrategy creates a reconnect strategy for conn
func NewReconnectStrategy(conn Reconnectable, opts ...ReconnectOption) *ReconnectStrategy {
	s := &ReconnectStrategy{
		conn:    conn,
		markers: append([]string(nil), DefaultDisconnectMarkers...),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldRetry reconnects and returns true when err reports a lost
// connection outside a transaction and the reconnect succeeds.
func (s *ReconnectStrategy) ShouldRetry(ctx context.Context, err error, retryCount int) bool {
	if err == nil {
		return false
	}
	marker, ok := s.match(err.Error())
	if !ok {
		return false
	}
	if s.conn.InTransaction() {
		s.logger.Warn("connection lost inside a transaction, not reconnecting",
			"connection", s.name,
			"reason", marker,
		)
		return false
	}

	// The old session may already be half closed; its errors are irrelevant.
	_ = s.conn.Disconnect()

	if cerr := s.conn.Connect(ctx); cerr != nil {
		s.logger.Warn("reconnect failed",
			"connection", s.name,
			"attempt", retryCount+1,
			"reason", marker,
			"error", cerr,
		)
		return false
	}

	s.logger.Warn("reconnect",
		"connection", s.name,
		"attempt", retryCount+1,
		"reason", marker,
	)
	return true
}

func (s *ReconnectStrategy) match(msg string) (string, bool) {
	for _, m := range s.markers {
		if strings.Contains(msg, m) {
			return m, true
		}
	}
	return "", false
}
