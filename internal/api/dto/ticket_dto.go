package dto

import (
	"time"

	"github.com/stksupply/ticket-bot/internal/domain"
)

// TicketResponse is one open ticket as served by the admin API.
type TicketResponse struct {
	Number    int               `json:"number"`
	Display   string            `json:"display"`
	Kind      domain.TicketKind `json:"kind"`
	ChannelID string            `json:"channel_id"`
	GuildID   string            `json:"guild_id"`
	UserID    string            `json:"user_id"`
	Reason    string            `json:"reason,omitempty"`
	Shop      string            `json:"shop,omitempty"`
	Category  string            `json:"category,omitempty"`
	CreatedAt *time.Time        `json:"created_at"`
}

// TicketListResponse wraps a ticket listing.
type TicketListResponse struct {
	Data       []TicketResponse `json:"data"`
	NextNumber int              `json:"next_number"`
}

// NewsResponse is the current announcement.
type NewsResponse struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	LastUpdated *time.Time `json:"last_updated"`
}

// UpdateNewsRequest replaces the announcement. GuildID selects where it is
// announced; empty means nowhere.
type UpdateNewsRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	GuildID string `json:"guild_id"`
}

// NewTicketResponse converts a record.
func NewTicketResponse(r domain.TicketRecord) TicketResponse {
	return TicketResponse{
		Number:    r.Number,
		Display:   r.DisplayNumber(),
		Kind:      r.Kind,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		UserID:    r.UserID,
		Reason:    r.Reason,
		Shop:      r.Shop,
		Category:  r.Category,
		CreatedAt: timePtr(r.CreatedAt),
	}
}

// NewNewsResponse converts news.
func NewNewsResponse(n domain.News) NewsResponse {
	return NewsResponse{Title: n.Title, Content: n.Content, LastUpdated: timePtr(n.LastUpdated)}
}

func timePtr(ts domain.Timestamp) *time.Time {
	if ts.IsZero() {
		return nil
	}
	t := ts.UTC()
	return &t
}
