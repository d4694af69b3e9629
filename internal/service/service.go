package service

import (
	"net/url"
	"strings"
	"time"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/store"
)

// Service runs flows against one store.
//
// Thread-safety: safe for concurrent use. Each flow is a sequence of
// store.Update calls, which retry on version conflicts.
type Service struct {
	store store.CollectionStore
	ids   record.IDGenerator
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator sets the generator for new primary keys.
// Default: record.UUIDv7Generator.
func WithIDGenerator(g record.IDGenerator) Option {
	return func(s *Service) {
		s.ids = g
	}
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service over s.
func New(s store.CollectionStore, opts ...Option) *Service {
	svc := &Service{
		store: s,
		ids:   record.UUIDv7Generator{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store returns the underlying store.
func (s *Service) Store() store.CollectionStore {
	return s.store
}

func (s *Service) timestamp() record.Timestamp {
	return record.NewTimestamp(s.now())
}

// AvatarURL returns a generated avatar image for a display name.
func AvatarURL(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "?"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
