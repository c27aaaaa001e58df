// Package bot turns platform interactions into menu navigation and ticket
// operations. The Router works on platform-neutral values; session.go adapts
// it to a discordgo session.
package bot

import (
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/platform"
)

// InteractionKind tells what the user did.
type InteractionKind int

const (
	KindCommand InteractionKind = iota
	KindComponent
	KindModalSubmit
)

// Interaction is one user action delivered by the platform.
type Interaction struct {
	Kind      InteractionKind
	GuildID   string
	GuildName string
	ChannelID string
	Member    domain.Member
	// DisplayName is the caller's nickname or username.
	DisplayName string

	// Command and Options are set for slash commands.
	Command string
	Options map[string]string

	// CustomID and Values are set for components; CustomID and Fields for
	// modal submits.
	CustomID string
	Values   []string
	Fields   map[string]string

	// Ephemeral is true when the clicked message was only visible to the
	// caller.
	Ephemeral bool
}

// ResponseKind tells how to answer an interaction.
type ResponseKind int

const (
	// ReplyMessage sends a new message.
	ReplyMessage ResponseKind = iota
	// ReplyUpdate edits the message that carried the clicked control.
	ReplyUpdate
	// ReplyModal opens a form.
	ReplyModal
)

// TextInput is one field of a Modal.
type TextInput struct {
	CustomID    string
	Label       string
	Placeholder string
	Paragraph   bool
	Required    bool
	MaxLength   int
	// Value prefills the input.
	Value string
}

// Modal is a form shown to the caller.
type Modal struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}

// Response is the router's answer.
type Response struct {
	Kind      ResponseKind
	Message   platform.Message
	Ephemeral bool
	Modal     *Modal
}

func reply(msg platform.Message) Response {
	return Response{Kind: ReplyMessage, Message: msg}
}

func private(msg platform.Message) Response {
	return Response{Kind: ReplyMessage, Message: msg, Ephemeral: true}
}

func privateText(text string) Response {
	return private(platform.Message{Content: text})
}

func update(msg platform.Message) Response {
	return Response{Kind: ReplyUpdate, Message: msg}
}
