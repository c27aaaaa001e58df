package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshotFillsMissingKeys(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"ticket_counter": 12}`))
	require.NoError(t, err)

	assert.Equal(t, 12, snap.TicketCounter)
	assert.Empty(t, snap.ActiveTickets)
	assert.NotNil(t, snap.ActiveTickets)
	assert.NotNil(t, snap.ActiveOrderTickets)
	assert.Equal(t, DefaultNewsTitle, snap.News.Title)
	assert.Equal(t, DefaultNewsContent, snap.News.Content)
}

func TestDecodeSnapshotRejectsCounterBelowOne(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"ticket_counter": 0}`))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TicketCounter)
}

func TestDecodeSnapshotBackfillsRecordKeys(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{
		"active_tickets": {"111": {"ticket_id": 3, "user_id": "9"}},
		"active_order_tickets": {"222": {"ticket_id": 4, "user_id": "9", "shop": "Bronx"}}
	}`))
	require.NoError(t, err)

	support := snap.ActiveTickets["111"]
	require.NotNil(t, support)
	assert.Equal(t, "111", support.ChannelID)
	assert.Equal(t, TicketKindSupport, support.Kind)

	order := snap.ActiveOrderTickets["222"]
	require.NotNil(t, order)
	assert.Equal(t, TicketKindOrder, order.Kind)
}

func TestDecodeSnapshotCorrupt(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"ticket_counter": `))
	assert.Error(t, err)
}

func TestSnapshotEncodeDecodeIdentity(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	snap := DefaultSnapshot()
	snap.TicketCounter = 8
	snap.ActiveTickets["100"] = &TicketRecord{
		Number: 6, Kind: TicketKindSupport, ChannelID: "100", GuildID: "1", UserID: "42",
		Reason: "my order never arrived", CreatedAt: NewTimestamp(created),
	}
	snap.ActiveOrderTickets["200"] = &TicketRecord{
		Number: 7, Kind: TicketKindOrder, ChannelID: "200", GuildID: "1", UserID: "43",
		Shop: "Tha Bronx 3", Category: "Weapons: Safe", CreatedAt: NewTimestamp(created),
	}

	data, err := snap.Encode()
	require.NoError(t, err)
	decoded, err := DecodeSnapshot(data)
	require.NoError(t, err)

	again, err := decoded.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestSnapshotFind(t *testing.T) {
	snap := DefaultSnapshot()
	snap.ActiveOrderTickets["5"] = &TicketRecord{Number: 1, ChannelID: "5", Kind: TicketKindOrder}

	record, ok := snap.Find("5")
	require.True(t, ok)
	assert.Equal(t, 1, record.Number)
	_, ok = snap.Find("6")
	assert.False(t, ok)
}

func TestDecodeSnapshotKeepsChannelInOneMap(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{
		"active_tickets": {"c1": {"ticket_id": 1, "user_id": "9"}},
		"active_order_tickets": {"c1": {"ticket_id": 2, "user_id": "9"}, "c2": {"ticket_id": 3}}
	}`))
	require.NoError(t, err)

	assert.Len(t, snap.ActiveTickets, 1)
	assert.Equal(t, 1, snap.ActiveTickets["c1"].Number)
	assert.Len(t, snap.ActiveOrderTickets, 1)
	assert.Contains(t, snap.ActiveOrderTickets, "c2")
}

const legacyDocument = `{
  "ticket_counter": 4,
  "active_tickets": {},
  "embed_counter": 3,
  "stored_embeds": {
    "embed_1": {
      "title": "Welcome",
      "description": null,
      "color": "#FF0000",
      "fields": [{"name": "Rules", "value": "Be nice", "inline": false}],
      "author": {"name": "STK", "icon_url": null},
      "has_ticket_system": true,
      "ticket_button_text": "Open",
      "ticket_category_id": 1234567890123456789
    }
  },
  "giveaways": {"g1": {"prize": "bag"}}
}`

func TestDecodeSnapshotKeepsEmbedsAndUnknownKeys(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(legacyDocument))
	require.NoError(t, err)

	require.Contains(t, snap.StoredEmbeds, "embed_1")
	embed := snap.StoredEmbeds["embed_1"]
	assert.Equal(t, "Welcome", embed.Title)
	assert.Equal(t, 0xFF0000, embed.ColorValue())
	assert.Equal(t, ChannelRef("1234567890123456789"), embed.TicketCategoryID)
	assert.Equal(t, "STK", embed.Author.Name)
	assert.Equal(t, 3, snap.EmbedCounter)

	data, err := snap.Encode()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Contains(t, out, "stored_embeds")
	assert.Contains(t, out, "giveaways")
	assert.EqualValues(t, 3, out["embed_counter"])
	assert.Contains(t, string(data), `"ticket_category_id": 1234567890123456789`)

	again, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap.StoredEmbeds, again.StoredEmbeds)
	assert.JSONEq(t, string(snap.Extra["giveaways"]), string(again.Extra["giveaways"]))
}

func TestDecodeSnapshotEmbedCounterFollowsIDs(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"embed_counter": 1, "stored_embeds": {"embed_7": {"title": "x"}, "custom": {}}}`))
	require.NoError(t, err)
	assert.Equal(t, 8, snap.EmbedCounter)
	assert.Equal(t, []string{"embed_7", "custom"}, snap.EmbedIDs())
}

func TestParseColor(t *testing.T) {
	for _, in := range []string{"#FF0000", "0xff0000", "FF0000"} {
		c, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, 0xFF0000, c)
	}
	c, err := ParseColor("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbedColor, c)

	_, err = ParseColor("red")
	assert.Error(t, err)
	assert.Equal(t, DefaultEmbedColor, StoredEmbed{Color: "red"}.ColorValue())
}

func TestTimestampLegacyFormats(t *testing.T) {
	var ts Timestamp
	require.NoError(t, ts.UnmarshalJSON([]byte(`"2025-11-02T08:15:30.123456"`)))
	assert.Equal(t, 2025, ts.Year())

	require.NoError(t, ts.UnmarshalJSON([]byte(`null`)))
	assert.True(t, ts.IsZero())

	assert.Error(t, ts.UnmarshalJSON([]byte(`"yesterday"`)))
}

func TestFormatTicketNumber(t *testing.T) {
	assert.Equal(t, "#0007", FormatTicketNumber(7))
	assert.Equal(t, "#12345", TicketRecord{Number: 12345}.DisplayNumber())
}
