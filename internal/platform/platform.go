package platform

import (
	"context"
	"time"

	"github.com/stksupply/ticket-bot/internal/domain"
)

// Platform is the chat-platform surface the bot consumes. Every call is
// attempted once; callers log failures instead of retrying.
type Platform interface {
	// SelfID is the bot's own user ID.
	SelfID() string
	CreateCategory(ctx context.Context, guildID, name string) (string, error)
	CreateTextChannel(ctx context.Context, spec ChannelSpec) (string, error)
	SendMessage(ctx context.Context, channelID string, msg Message) error
	DeleteChannel(ctx context.Context, channelID string) error
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	Channels(ctx context.Context, guildID string) ([]domain.Channel, error)
	Members(ctx context.Context, guildID string) ([]domain.Member, error)
}

// GrantTarget tells whether a grant applies to a role or a single member.
type GrantTarget int

const (
	GrantRole GrantTarget = iota
	GrantMember
)

// Grant is one permission overwrite on a channel. Allowed grants can view,
// send and read history; denied grants cannot view.
type Grant struct {
	ID     string
	Target GrantTarget
	Allow  bool
}

// ChannelSpec describes a text channel to create.
type ChannelSpec struct {
	GuildID  string
	Name     string
	ParentID string
	Topic    string
	Grants   []Grant
}

// ButtonStyle mirrors the platform's button colours.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is a clickable control carrying its whole payload in CustomID.
type Button struct {
	Label    string
	CustomID string
	Style    ButtonStyle
}

// SelectOption is one choice of a SelectMenu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// SelectMenu is a dropdown; selected values are delivered with the click.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	MinValues   int
	MaxValues   int
	Options     []SelectOption
}

// Row is one line of controls: either buttons or a single select menu.
type Row struct {
	Buttons []Button
	Select  *SelectMenu
}

// EmbedField is a titled block inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a titled, coloured rich message.
type Embed struct {
	Title       string
	Description string
	Color       int
	Footer      string
	Fields      []EmbedField
	Timestamp   time.Time

	// Thumbnail and Image are URLs.
	Thumbnail  string
	Image      string
	AuthorName string
	AuthorIcon string
}

// Message is a platform-neutral outgoing message.
type Message struct {
	Content string
	Embed   *Embed
	Rows    []Row
}

// Buttons returns every button in msg, row by row.
func (m Message) Buttons() []Button {
	var out []Button
	for _, row := range m.Rows {
		out = append(out, row.Buttons...)
	}
	return out
}
