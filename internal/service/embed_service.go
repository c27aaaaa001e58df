package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/platform"
	"github.com/stksupply/ticket-bot/pkg/util/errorutil"
)

// ControlOpenSupport opens the support form. Buttons on custom embeds may
// append "|<category id>" to pick the channel group of the ticket.
const ControlOpenSupport = "support|open"

// DefaultDraftTTL is how long an untouched embed draft is kept.
const DefaultDraftTTL = 15 * time.Minute

// EmbedDraft is an embed being built by one staff member.
type EmbedDraft struct {
	ID      string
	OwnerID string
	// EditingID is the stored embed this draft replaces when sent.
	EditingID string
	Embed     domain.StoredEmbed

	touched time.Time
}

// EmbedBasics is the first form of the builder.
type EmbedBasics struct {
	Title       string `validate:"max=256"`
	Description string `validate:"max=4000"`
	Color       string `validate:"max=10"`
	Footer      string `validate:"max=2048"`
	Thumbnail   string `validate:"omitempty,max=2048,url"`
}

// FieldInput adds one field. Inline is "true" or "false".
type FieldInput struct {
	Name   string `validate:"required,max=256"`
	Value  string `validate:"required,max=1024"`
	Inline string `validate:"max=5"`
}

// AuthorInput sets the author line.
type AuthorInput struct {
	Name    string `validate:"required,max=256"`
	IconURL string `validate:"omitempty,max=2048,url"`
}

// TicketSettings turns the embed into a ticket panel.
type TicketSettings struct {
	ButtonText string `validate:"max=80"`
	CategoryID string `validate:"omitempty,max=20,numeric"`
}

type imageInput struct {
	URL string `validate:"required,max=2048,url"`
}

// EmbedSummary is one line of /list_embeds.
type EmbedSummary struct {
	ID    string
	Title string
}

// EmbedService builds custom embeds, posts them and keeps them in the
// snapshot under stored_embeds. Drafts stay in memory until sent or
// expired.
type EmbedService struct {
	tickets  *TicketService
	platform platform.Platform
	logger   *zap.Logger
	validate *validator.Validate
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	drafts map[string]*EmbedDraft
}

// NewEmbedService creates the builder. A zero ttl means DefaultDraftTTL.
func NewEmbedService(tickets *TicketService, chat platform.Platform, logger *zap.Logger, ttl time.Duration) *EmbedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &EmbedService{
		tickets:  tickets,
		platform: chat,
		logger:   logger,
		validate: validator.New(),
		ttl:      ttl,
		now:      tickets.now,
		drafts:   map[string]*EmbedDraft{},
	}
}

// NewDraft starts an empty embed for ownerID.
func (s *EmbedService) NewDraft(ownerID string) EmbedDraft {
	return s.put(&EmbedDraft{ID: uuid.NewString(), OwnerID: ownerID})
}

// EditDraft starts a draft from the stored embed embedID.
func (s *EmbedService) EditDraft(ownerID, embedID string) (EmbedDraft, error) {
	embedID = strings.TrimSpace(embedID)
	var stored domain.StoredEmbed
	var ok bool
	s.tickets.view(func(snap *domain.Snapshot) {
		var e *domain.StoredEmbed
		if e, ok = snap.StoredEmbeds[embedID]; ok {
			stored = e.Copy()
		}
	})
	if !ok {
		return EmbedDraft{}, errorutil.NewNotFound("embed", map[string]any{"id": embedID})
	}
	return s.put(&EmbedDraft{ID: uuid.NewString(), OwnerID: ownerID, EditingID: embedID, Embed: stored}), nil
}

// Draft returns draft id if it belongs to ownerID and has not expired.
func (s *EmbedService) Draft(id, ownerID string) (EmbedDraft, error) {
	return s.change(id, ownerID, func(*EmbedDraft) error { return nil })
}

// SetBasics replaces title, description, colour, footer and thumbnail.
func (s *EmbedService) SetBasics(id, ownerID string, in EmbedBasics) (EmbedDraft, error) {
	in = EmbedBasics{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Color:       strings.TrimSpace(in.Color),
		Footer:      strings.TrimSpace(in.Footer),
		Thumbnail:   strings.TrimSpace(in.Thumbnail),
	}
	if err := s.check("invalid embed", in); err != nil {
		return EmbedDraft{}, err
	}
	if _, err := domain.ParseColor(in.Color); err != nil {
		return EmbedDraft{}, errorutil.NewValidationError("invalid colour", map[string]any{"color": in.Color})
	}
	return s.change(id, ownerID, func(d *EmbedDraft) error {
		d.Embed.Title = in.Title
		d.Embed.Description = in.Description
		d.Embed.Color = in.Color
		d.Embed.Footer = in.Footer
		d.Embed.Thumbnail = in.Thumbnail
		return nil
	})
}

// AddField appends a field.
func (s *EmbedService) AddField(id, ownerID string, in FieldInput) (EmbedDraft, error) {
	in = FieldInput{Name: strings.TrimSpace(in.Name), Value: strings.TrimSpace(in.Value), Inline: strings.TrimSpace(in.Inline)}
	if err := s.check("invalid field", in); err != nil {
		return EmbedDraft{}, err
	}
	field := domain.EmbedField{Name: in.Name, Value: in.Value, Inline: strings.EqualFold(in.Inline, "true")}
	return s.change(id, ownerID, func(d *EmbedDraft) error {
		if len(d.Embed.Fields) >= domain.MaxEmbedFields {
			return errorutil.NewValidationError("too many fields", map[string]any{"max": domain.MaxEmbedFields})
		}
		d.Embed.Fields = append(d.Embed.Fields, field)
		return nil
	})
}

// SetImage sets the large image.
func (s *EmbedService) SetImage(id, ownerID, url string) (EmbedDraft, error) {
	in := imageInput{URL: strings.TrimSpace(url)}
	if err := s.check("invalid image", in); err != nil {
		return EmbedDraft{}, err
	}
	return s.change(id, ownerID, func(d *EmbedDraft) error {
		d.Embed.Image = in.URL
		return nil
	})
}

// SetAuthor sets the author line.
func (s *EmbedService) SetAuthor(id, ownerID string, in AuthorInput) (EmbedDraft, error) {
	in = AuthorInput{Name: strings.TrimSpace(in.Name), IconURL: strings.TrimSpace(in.IconURL)}
	if err := s.check("invalid author", in); err != nil {
		return EmbedDraft{}, err
	}
	return s.change(id, ownerID, func(d *EmbedDraft) error {
		d.Embed.Author = &domain.EmbedAuthor{Name: in.Name, IconURL: in.IconURL}
		return nil
	})
}

// SetTicket attaches a ticket button. An empty CategoryID keeps the
// configured support category.
func (s *EmbedService) SetTicket(id, ownerID string, in TicketSettings) (EmbedDraft, error) {
	in = TicketSettings{ButtonText: strings.TrimSpace(in.ButtonText), CategoryID: strings.TrimSpace(in.CategoryID)}
	if err := s.check("invalid ticket settings", in); err != nil {
		return EmbedDraft{}, err
	}
	if in.CategoryID != "" {
		if _, err := snowflake.ParseString(in.CategoryID); err != nil {
			return EmbedDraft{}, errorutil.NewValidationError("invalid category id", map[string]any{"category_id": in.CategoryID})
		}
	}
	return s.change(id, ownerID, func(d *EmbedDraft) error {
		d.Embed.HasTicketSystem = true
		d.Embed.TicketButtonText = in.ButtonText
		if d.Embed.TicketButtonText == "" {
			d.Embed.TicketButtonText = domain.DefaultEmbedButton
		}
		d.Embed.TicketCategoryID = domain.ChannelRef(in.CategoryID)
		return nil
	})
}

// Send posts the draft into channelID and stores it. A draft started by
// EditDraft overwrites its embed; new drafts take the next embed_N. The
// draft is kept when posting fails so it can be sent again.
func (s *EmbedService) Send(ctx context.Context, id, ownerID, channelID string) (string, error) {
	draft, err := s.Draft(id, ownerID)
	if err != nil {
		return "", err
	}
	if isEmpty(draft.Embed) {
		return "", errorutil.NewValidationError("embed is empty", nil)
	}
	logger := s.logger.With(zap.String("draft_id", id), zap.String("channel_id", channelID))
	if err := s.platform.SendMessage(ctx, channelID, EmbedMessage(draft.Embed)); err != nil {
		logger.Warn("unable to post embed", zap.Error(err))
		return "", fmt.Errorf("post embed: %w", err)
	}

	stored := draft.Embed.Copy()
	var embedID string
	s.tickets.update(ctx, func(snap *domain.Snapshot) {
		if _, ok := snap.StoredEmbeds[draft.EditingID]; ok {
			embedID = draft.EditingID
		} else {
			embedID = fmt.Sprintf("%s%d", domain.EmbedIDPrefix, snap.EmbedCounter)
			snap.EmbedCounter++
		}
		snap.StoredEmbeds[embedID] = &stored
	})

	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	logger.Info("embed sent", zap.String("embed_id", embedID), zap.String("owner_id", ownerID))
	return embedID, nil
}

// List returns the stored embeds ordered by ID number.
func (s *EmbedService) List() []EmbedSummary {
	var out []EmbedSummary
	s.tickets.view(func(snap *domain.Snapshot) {
		for _, id := range snap.EmbedIDs() {
			out = append(out, EmbedSummary{ID: id, Title: snap.StoredEmbeds[id].Title})
		}
	})
	return out
}

// Stored returns a copy of embed id.
func (s *EmbedService) Stored(id string) (domain.StoredEmbed, bool) {
	var out domain.StoredEmbed
	var ok bool
	s.tickets.view(func(snap *domain.Snapshot) {
		var e *domain.StoredEmbed
		if e, ok = snap.StoredEmbeds[id]; ok {
			out = e.Copy()
		}
	})
	return out, ok
}

func (s *EmbedService) check(message string, in any) error {
	if err := s.validate.Struct(in); err != nil {
		return errorutil.NewValidationError(message, map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *EmbedService) put(d *EmbedDraft) EmbedDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	d.touched = now
	s.drafts[d.ID] = d
	return copyDraft(d)
}

// change applies fn to draft id and refreshes its expiry.
func (s *EmbedService) change(id, ownerID string, fn func(*EmbedDraft) error) (EmbedDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	d, ok := s.drafts[id]
	if !ok || d.OwnerID != ownerID {
		return EmbedDraft{}, errorutil.NewNotFound("embed draft", map[string]any{"id": id})
	}
	if err := fn(d); err != nil {
		return EmbedDraft{}, err
	}
	d.touched = now
	return copyDraft(d), nil
}

func (s *EmbedService) sweepLocked(now time.Time) {
	for id, d := range s.drafts {
		if now.Sub(d.touched) > s.ttl {
			delete(s.drafts, id)
		}
	}
}

func copyDraft(d *EmbedDraft) EmbedDraft {
	out := *d
	out.Embed = d.Embed.Copy()
	return out
}

func isEmpty(e domain.StoredEmbed) bool {
	return e.Title == "" && e.Description == "" && len(e.Fields) == 0 &&
		e.Image == "" && e.Thumbnail == "" && e.Author == nil
}

// SupportButtonID is the custom ID of a ticket button that files tickets
// under categoryID, or under the configured category when it is empty.
func SupportButtonID(categoryID string) string {
	if categoryID == "" {
		return ControlOpenSupport
	}
	return ControlOpenSupport + "|" + categoryID
}

// EmbedMessage renders a stored embed with its ticket button.
func EmbedMessage(e domain.StoredEmbed) platform.Message {
	embed := &platform.Embed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.ColorValue(),
		Footer:      e.Footer,
		Thumbnail:   e.Thumbnail,
		Image:       e.Image,
	}
	if e.Author != nil {
		embed.AuthorName = e.Author.Name
		embed.AuthorIcon = e.Author.IconURL
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, platform.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	msg := platform.Message{Embed: embed}
	if e.HasTicketSystem {
		msg.Rows = []platform.Row{{Buttons: []platform.Button{{
			Label:    "🎫 " + e.ButtonText(),
			CustomID: SupportButtonID(string(e.TicketCategoryID)),
			Style:    platform.ButtonPrimary,
		}}}}
	}
	return msg
}

// EmbedListMessage renders the /list_embeds reply.
func EmbedListMessage(list []EmbedSummary) platform.Message {
	if len(list) == 0 {
		return platform.Message{Content: "No embeds stored yet."}
	}
	lines := make([]string, 0, len(list))
	for _, e := range list {
		title := e.Title
		if title == "" {
			title = "No title"
		}
		lines = append(lines, "**"+e.ID+"**: "+title)
	}
	return platform.Message{Embed: &platform.Embed{
		Title:       "📋 Stored Embeds",
		Description: strings.Join(lines, "\n"),
		Color:       domain.DefaultEmbedColor,
	}}
}
