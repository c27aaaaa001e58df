package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Limits of a custom embed, matching what the platform accepts.
const (
	MaxEmbedFields     = 25
	DefaultEmbedColor  = 0x0099FF
	DefaultEmbedButton = "Create Ticket"
)

// StoredEmbed is a staff-built announcement kept under stored_embeds.
type StoredEmbed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       string       `json:"color,omitempty"`
	Footer      string       `json:"footer,omitempty"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	Image       string       `json:"image,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields"`

	HasTicketSystem  bool   `json:"has_ticket_system"`
	TicketButtonText string `json:"ticket_button_text,omitempty"`
	// TicketCategoryID is the channel group tickets opened from this embed
	// land in.
	TicketCategoryID ChannelRef `json:"ticket_category_id,omitempty"`
}

// EmbedAuthor is the optional author line.
type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedField is one titled block of a StoredEmbed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Copy returns an independent copy of e.
func (e StoredEmbed) Copy() StoredEmbed {
	out := e
	out.Fields = append([]EmbedField(nil), e.Fields...)
	if e.Author != nil {
		author := *e.Author
		out.Author = &author
	}
	return out
}

// ButtonText is the label of the ticket button.
func (e StoredEmbed) ButtonText() string {
	if strings.TrimSpace(e.TicketButtonText) == "" {
		return DefaultEmbedButton
	}
	return e.TicketButtonText
}

// ColorValue parses Color ("#FF0000", "0xFF0000" or "FF0000"). Empty or
// malformed colours fall back to DefaultEmbedColor.
func (e StoredEmbed) ColorValue() int {
	c, err := ParseColor(e.Color)
	if err != nil {
		return DefaultEmbedColor
	}
	return c
}

// ParseColor parses a hex RGB colour. The empty string yields
// DefaultEmbedColor.
func ParseColor(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultEmbedColor, nil
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "#"), "0x")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || v > 0xFFFFFF {
		return 0, fmt.Errorf("invalid colour %q", s)
	}
	return int(v), nil
}

// ChannelRef is a platform ID that older files stored as a JSON number.
// Digit-only values are written back as numbers.
type ChannelRef string

// MarshalJSON implements json.Marshaler.
func (c ChannelRef) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseUint(string(c), 10, 64); err == nil {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts a string, a number or null.
func (c *ChannelRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ChannelRef(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("channel ref: %w", err)
		}
		*c = ChannelRef(n.String())
	}
	return nil
}
