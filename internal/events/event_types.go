package events

import (
	"time"

	"github.com/stksupply/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketClosed   EventType = "ticket_closed"
	EventOrderCompleted EventType = "order_completed"
	EventNewsUpdated    EventType = "news_updated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GuildID   string      `json:"guild_id,omitempty"`
	ChannelID string      `json:"channel_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketPayload carries the affected ticket.
type TicketPayload struct {
	Ticket domain.TicketRecord `json:"ticket"`
}

// NewsPayload carries the published news.
type NewsPayload struct {
	News domain.News `json:"news"`
}
