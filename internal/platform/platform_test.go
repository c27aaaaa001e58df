package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stksupply/ticket-bot/internal/domain"
)

func TestPermissionsOf(t *testing.T) {
	perms := PermissionsOf(discordgo.PermissionKickMembers | discordgo.PermissionManageMessages)

	assert.True(t, perms.Has(domain.PermKickMembers))
	assert.True(t, perms.Has(domain.PermManageMessages))
	assert.False(t, perms.Has(domain.PermAdministrator))
	assert.True(t, PermissionsOf(discordgo.PermissionAdministrator).Has(domain.PermAdministrator))
}

func TestComponentsConvertsRows(t *testing.T) {
	rows := []Row{
		{Select: &SelectMenu{CustomID: "pick", MinValues: 1, MaxValues: 3, Options: []SelectOption{{Label: "Safe", Value: "safe"}}}},
		{Buttons: []Button{{Label: "Close", CustomID: "ticket|close", Style: ButtonDanger}}},
		{},
	}

	components := Components(rows)
	require.Len(t, components, 2)

	first := components[0].(discordgo.ActionsRow)
	menu := first.Components[0].(discordgo.SelectMenu)
	assert.Equal(t, "pick", menu.CustomID)
	assert.Equal(t, 1, *menu.MinValues)
	assert.Equal(t, 3, menu.MaxValues)

	second := components[1].(discordgo.ActionsRow)
	button := second.Components[0].(discordgo.Button)
	assert.Equal(t, discordgo.DangerButton, button.Style)
	assert.Equal(t, "ticket|close", button.CustomID)
}

func TestMemoryPlatform(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	guild := mem.NewID()

	catID, err := mem.CreateCategory(ctx, guild, "Tickets")
	require.NoError(t, err)
	chID, err := mem.CreateTextChannel(ctx, ChannelSpec{GuildID: guild, Name: "ticket-0001", ParentID: catID})
	require.NoError(t, err)

	require.NoError(t, mem.SendMessage(ctx, chID, Message{Content: "hello"}))
	assert.Len(t, mem.Messages(chID), 1)

	channels, err := mem.Channels(ctx, guild)
	require.NoError(t, err)
	assert.Len(t, channels, 2)

	require.NoError(t, mem.DeleteChannel(ctx, chID))
	assert.Error(t, mem.DeleteChannel(ctx, chID))
	ch, ok := mem.Channel(chID)
	require.True(t, ok)
	assert.True(t, ch.Deleted)

	boom := errors.New("boom")
	mem.FailNext("SendMessage", boom)
	assert.ErrorIs(t, mem.SendMessage(ctx, catID, Message{}), boom)
	assert.NoError(t, mem.SendMessage(ctx, catID, Message{}))
}

func TestEmbedOfCarriesMedia(t *testing.T) {
	embed := EmbedOf(&Embed{
		Title:      "Drop",
		Footer:     "STK",
		Thumbnail:  "https://cdn.example.com/t.png",
		Image:      "https://cdn.example.com/i.png",
		AuthorName: "Staff",
		AuthorIcon: "https://cdn.example.com/a.png",
		Fields:     []EmbedField{{Name: "Price", Value: "5k", Inline: true}},
	})

	assert.Equal(t, "https://cdn.example.com/t.png", embed.Thumbnail.URL)
	assert.Equal(t, "https://cdn.example.com/i.png", embed.Image.URL)
	assert.Equal(t, "Staff", embed.Author.Name)
	assert.Equal(t, "https://cdn.example.com/a.png", embed.Author.IconURL)
	assert.Equal(t, "STK", embed.Footer.Text)
	require.Len(t, embed.Fields, 1)
	assert.True(t, embed.Fields[0].Inline)

	bare := EmbedOf(&Embed{Title: "x"})
	assert.Nil(t, bare.Thumbnail)
	assert.Nil(t, bare.Image)
	assert.Nil(t, bare.Author)
}
