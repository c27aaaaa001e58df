package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Placeholder news used until staff publish something.
const (
	DefaultNewsTitle   = "📰 Latest News"
	DefaultNewsContent = "No news has been posted yet. Check back soon!"
)

// EmbedIDPrefix prefixes the keys of stored_embeds, e.g. embed_3.
const EmbedIDPrefix = "embed_"

// News is the single persisted announcement.
type News struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	LastUpdated Timestamp `json:"last_updated"`
}

// Snapshot is the full persisted bot state. It is overwritten as a whole
// after every mutation.
type Snapshot struct {
	TicketCounter      int                      `json:"ticket_counter"`
	ActiveTickets      map[string]*TicketRecord `json:"active_tickets"`
	ActiveOrderTickets map[string]*TicketRecord `json:"active_order_tickets"`
	News               News                     `json:"news_data"`
	EmbedCounter       int                      `json:"embed_counter"`
	StoredEmbeds       map[string]*StoredEmbed  `json:"stored_embeds"`

	// Extra holds top-level keys this version does not know. They are
	// written back unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

var snapshotKeys = map[string]struct{}{
	"ticket_counter":       {},
	"active_tickets":       {},
	"active_order_tickets": {},
	"news_data":            {},
	"embed_counter":        {},
	"stored_embeds":        {},
}

// DefaultSnapshot is the state used when nothing usable is persisted.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		TicketCounter:      1,
		ActiveTickets:      map[string]*TicketRecord{},
		ActiveOrderTickets: map[string]*TicketRecord{},
		News: News{
			Title:   DefaultNewsTitle,
			Content: DefaultNewsContent,
		},
		EmbedCounter: 1,
		StoredEmbeds: map[string]*StoredEmbed{},
	}
}

// DecodeSnapshot parses a persisted document and fills missing keys with
// their defaults. A channel present in both ticket maps is kept as a
// support ticket only.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var raw struct {
		TicketCounter      *int                     `json:"ticket_counter"`
		ActiveTickets      map[string]*TicketRecord `json:"active_tickets"`
		ActiveOrderTickets map[string]*TicketRecord `json:"active_order_tickets"`
		News               *News                    `json:"news_data"`
		EmbedCounter       *int                     `json:"embed_counter"`
		StoredEmbeds       map[string]*StoredEmbed  `json:"stored_embeds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := DefaultSnapshot()
	if raw.TicketCounter != nil && *raw.TicketCounter >= 1 {
		snap.TicketCounter = *raw.TicketCounter
	}
	if raw.News != nil {
		snap.News = *raw.News
	}
	fill := func(dst map[string]*TicketRecord, src map[string]*TicketRecord, kind TicketKind, taken map[string]*TicketRecord) {
		for channelID, record := range src {
			if record == nil {
				continue
			}
			if _, dup := taken[channelID]; dup {
				continue
			}
			if record.ChannelID == "" {
				record.ChannelID = channelID
			}
			if record.Kind == "" {
				record.Kind = kind
			}
			dst[channelID] = record
		}
	}
	fill(snap.ActiveTickets, raw.ActiveTickets, TicketKindSupport, nil)
	fill(snap.ActiveOrderTickets, raw.ActiveOrderTickets, TicketKindOrder, snap.ActiveTickets)

	for id, embed := range raw.StoredEmbeds {
		if embed != nil {
			snap.StoredEmbeds[id] = embed
		}
	}
	if raw.EmbedCounter != nil && *raw.EmbedCounter >= 1 {
		snap.EmbedCounter = *raw.EmbedCounter
	}
	// The counter never trails the stored IDs, so a new embed cannot
	// overwrite an old one.
	for id := range snap.StoredEmbeds {
		if n, ok := EmbedNumber(id); ok && n >= snap.EmbedCounter {
			snap.EmbedCounter = n + 1
		}
	}

	for key, value := range all {
		if _, known := snapshotKeys[key]; known {
			continue
		}
		if snap.Extra == nil {
			snap.Extra = map[string]json.RawMessage{}
		}
		snap.Extra[key] = value
	}
	return snap, nil
}

// Encode renders the snapshot as the indented persisted document.
func (s *Snapshot) Encode() ([]byte, error) {
	type plain Snapshot
	if len(s.Extra) == 0 {
		return json.MarshalIndent((*plain)(s), "", "  ")
	}
	known, err := json.Marshal((*plain)(s))
	if err != nil {
		return nil, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for key, value := range s.Extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.MarshalIndent(merged, "", "  ")
}

// Tickets returns the open-ticket map for kind.
func (s *Snapshot) Tickets(kind TicketKind) map[string]*TicketRecord {
	if kind == TicketKindOrder {
		return s.ActiveOrderTickets
	}
	return s.ActiveTickets
}

// Find looks a channel up in both open maps.
func (s *Snapshot) Find(channelID string) (*TicketRecord, bool) {
	if record, ok := s.ActiveTickets[channelID]; ok {
		return record, true
	}
	if record, ok := s.ActiveOrderTickets[channelID]; ok {
		return record, true
	}
	return nil, false
}

// EmbedIDs lists the stored embed IDs by number, unnumbered IDs last.
func (s *Snapshot) EmbedIDs() []string {
	ids := make([]string, 0, len(s.StoredEmbeds))
	for id := range s.StoredEmbeds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aok := EmbedNumber(ids[i])
		b, bok := EmbedNumber(ids[j])
		if aok != bok {
			return aok
		}
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

// EmbedNumber extracts n from "embed_n".
func EmbedNumber(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, EmbedIDPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
