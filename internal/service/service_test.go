package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/config"
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/events"
	"github.com/stksupply/ticket-bot/internal/observability"
	"github.com/stksupply/ticket-bot/internal/persistence"
	"github.com/stksupply/ticket-bot/internal/platform"
)

const (
	testGuild    = "900000000000000001"
	staffRole    = "900000000000000002"
	ownerRole    = "900000000000000003"
	customerRole = "900000000000000004"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every timer that is neither stopped nor already fired.
func (c *fakeClock) fire() int {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
	return len(due)
}

type harness struct {
	svc       *TicketService
	chat      *platform.Memory
	clock     *fakeClock
	scheduler *DeletionScheduler
	metrics   *observability.Metrics
	path      string
	events    []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		chat:    platform.NewMemory(),
		clock:   &fakeClock{},
		metrics: observability.NewMetrics(),
		path:    filepath.Join(t.TempDir(), "bot_data.json"),
	}
	h.scheduler = NewDeletionScheduler(h.clock.AfterFunc)
	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, et := range []events.EventType{events.EventTicketCreated, events.EventTicketClosed, events.EventOrderCompleted, events.EventNewsUpdated} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			h.events = append(h.events, e)
			return nil
		})
	}
	h.svc = NewTicketService(context.Background(), TicketDependencies{
		Store:      persistence.NewSoftStore(persistence.NewFileStore(h.path), zap.NewNop()),
		Platform:   h.chat,
		Dispatcher: dispatcher,
		Metrics:    h.metrics,
		Scheduler:  h.scheduler,
		Logger:     zap.NewNop(),
		Discord: config.DiscordConfig{
			StaffRoleID:    staffRole,
			OwnerRoleID:    ownerRole,
			CustomerRoleID: customerRole,
		},
		Tickets: config.TicketConfig{
			CloseDelaySeconds: 10,
			SupportCategory:   "Tickets",
			OrderCategory:     "Orders",
		},
		Now: func() time.Time { return testNow },
	})
	return h
}

// persisted reads the snapshot file back from disk.
func (h *harness) persisted(t *testing.T) *domain.Snapshot {
	t.Helper()
	snap, err := persistence.NewFileStore(h.path).Load(context.Background())
	require.NoError(t, err)
	return snap
}

func requester(userID string) domain.Requester {
	return domain.Requester{GuildID: testGuild, UserID: userID, DisplayName: "user-" + userID}
}
