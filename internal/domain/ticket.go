package domain

import "fmt"

// TicketKind distinguishes the two open-ticket maps.
type TicketKind string

const (
	TicketKindSupport TicketKind = "support"
	TicketKindOrder   TicketKind = "order"
)

// MaxReasonLength bounds the free-text reason on support tickets.
const MaxReasonLength = 1000

// TicketRecord is one open support or order conversation.
type TicketRecord struct {
	Number    int        `json:"ticket_id"`
	Kind      TicketKind `json:"kind"`
	ChannelID string     `json:"channel_id"`
	GuildID   string     `json:"guild_id"`
	UserID    string     `json:"user_id"`
	Reason    string     `json:"reason"`
	Shop      string     `json:"shop"`
	Category  string     `json:"category"`
	CreatedAt Timestamp  `json:"created_at"`
}

// DisplayNumber renders the zero-padded ticket number, e.g. #0007.
func (t TicketRecord) DisplayNumber() string {
	return FormatTicketNumber(t.Number)
}

// FormatTicketNumber zero-pads n to four digits.
func FormatTicketNumber(n int) string {
	return fmt.Sprintf("#%04d", n)
}

// Requester identifies who asked for a ticket and where.
type Requester struct {
	GuildID     string
	UserID      string
	DisplayName string
	// ParentID is the channel group picked by the panel the requester used.
	// Empty means the configured ticket category.
	ParentID string
}
