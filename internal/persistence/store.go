package persistence

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/domain"
)

// ErrNoSnapshot is returned by backends when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no snapshot persisted")

// SnapshotStore persists the full bot state as one document.
type SnapshotStore interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, snap *domain.Snapshot) error
	Ping(ctx context.Context) error
}

// SoftStore wraps a backend so that neither loading nor saving can fail the
// caller. Load falls back to the default snapshot; Save logs.
type SoftStore struct {
	backend SnapshotStore
	logger  *zap.Logger
}

// NewSoftStore wraps backend.
func NewSoftStore(backend SnapshotStore, logger *zap.Logger) *SoftStore {
	return &SoftStore{backend: backend, logger: logger}
}

// Load returns the persisted snapshot or the default one.
func (s *SoftStore) Load(ctx context.Context) *domain.Snapshot {
	snap, err := s.backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		s.logger.Info("no persisted snapshot; starting fresh")
		return domain.DefaultSnapshot()
	case err != nil:
		s.logger.Warn("unable to load snapshot; using defaults", zap.Error(err))
		return domain.DefaultSnapshot()
	case snap == nil:
		return domain.DefaultSnapshot()
	}
	s.logger.Info("snapshot loaded",
		zap.Int("ticket_counter", snap.TicketCounter),
		zap.Int("support_tickets", len(snap.ActiveTickets)),
		zap.Int("order_tickets", len(snap.ActiveOrderTickets)))
	return snap
}

// Save persists snap, reporting failures only through the log.
func (s *SoftStore) Save(ctx context.Context, snap *domain.Snapshot) {
	if err := s.backend.Save(ctx, snap); err != nil {
		s.logger.Error("unable to save snapshot", zap.Error(err))
	}
}

// Ping checks backend reachability.
func (s *SoftStore) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
