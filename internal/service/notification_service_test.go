package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/config"
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/events"
	"github.com/stksupply/ticket-bot/internal/platform"
)

func TestNotificationsMirrorTicketEvents(t *testing.T) {
	var (
		mu       sync.Mutex
		received []map[string]any
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		received = append(received, body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	chat := platform.NewMemory()
	logs := chat.AddChannel(testGuild, domain.Channel{Name: "mod-logs"})
	directory := NewChannelDirectory()
	directory.Set(testGuild, domain.DetectedChannels{domain.CategoryLogs: logs})

	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(dispatcher, chat, directory, zap.NewNop(), config.NotificationConfig{WebhookURL: hook.URL}).RegisterHandlers()

	ticket := domain.TicketRecord{Number: 3, Kind: domain.TicketKindOrder, GuildID: testGuild, UserID: "8", Shop: "South Bronx", Category: "Money: Max Bank 990k"}
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:      events.EventTicketCreated,
		GuildID:   testGuild,
		ChannelID: "555",
		ActorID:   "8",
		Payload:   events.TicketPayload{Ticket: ticket},
	}))

	msgs := chat.Messages(logs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Ticket opened", msgs[0].Embed.Title)
	assert.Equal(t, "#0003", msgs[0].Embed.Fields[0].Value)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "ticket_created", received[0]["type"])
	assert.Equal(t, "555", received[0]["channel_id"])
}

func TestNotificationsAnnounceNews(t *testing.T) {
	chat := platform.NewMemory()
	news := chat.AddChannel(testGuild, domain.Channel{Name: "daily-news"})
	directory := NewChannelDirectory()
	directory.Set(testGuild, domain.DetectedChannels{domain.CategoryNews: news})

	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(dispatcher, chat, directory, zap.NewNop(), config.NotificationConfig{}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventNewsUpdated,
		GuildID: testGuild,
		Payload: events.NewsPayload{News: domain.News{Title: "Restock", Content: "Bags are back."}},
	}))

	msgs := chat.Messages(news)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Restock", msgs[0].Embed.Title)
	assert.Equal(t, "Bags are back.", msgs[0].Embed.Description)
}

func TestNotificationsWithoutDetectedChannels(t *testing.T) {
	var failures []error
	dispatcher := events.NewInMemoryDispatcher(func(_ events.Event, err error) { failures = append(failures, err) })
	NewNotificationService(dispatcher, platform.NewMemory(), NewChannelDirectory(), zap.NewNop(), config.NotificationConfig{}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTicketClosed,
		GuildID: testGuild,
		Payload: events.TicketPayload{Ticket: domain.TicketRecord{Number: 1}},
	}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTicketClosed,
		Payload: "not a ticket",
	}))
	require.Len(t, failures, 1)
}
