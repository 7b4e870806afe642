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

// Service encapsulates health-related checks.
type Service struct {
	DB Pinger
	// Queue names the async backend; empty means in-process.
	Queue string
}

// NewService constructs a new health service. db may be nil when the
// process runs on in-memory repositories.
func NewService(db Pinger, queue string) *Service {
	return &Service{DB: db, Queue: queue}
}

// Status reports component health. ok is false when a configured
// dependency does not respond.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	payload := map[string]any{"ok": true}
	ok := true

	storage := "memory"
	if s.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := s.DB.PingContext(pingCtx); err != nil {
			storage = "unreachable"
			ok = false
		} else {
			storage = "postgres"
		}
	}
	payload["storage"] = storage

	if s.Queue != "" {
		payload["queue"] = s.Queue
	} else {
		payload["queue"] = "in-process"
	}
	payload["ok"] = ok
	return payload, ok
}
