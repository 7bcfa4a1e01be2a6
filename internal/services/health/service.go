package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks. A nil DB means the in-memory
// repository is in use.
type Service struct {
	DB Pinger
}

// NewService constructs a new health service.
func NewService(db Pinger) *Service {
	return &Service{DB: db}
}

// Report is the readiness payload.
type Report struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Status returns a simple liveness payload.
func (s *Service) Status() map[string]bool {
	return map[string]bool{"ok": true}
}

// Ready checks the backing database.
func (s *Service) Ready(ctx context.Context) Report {
	if s == nil || s.DB == nil {
		return Report{OK: true, Database: "memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return Report{OK: false, Database: "down", Error: err.Error()}
	}
	return Report{OK: true, Database: "up"}
}
