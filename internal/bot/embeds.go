package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/platform"
	"github.com/stksupply/ticket-bot/internal/service"
	"github.com/stksupply/ticket-bot/pkg/util/errorutil"
)

// Embed builder commands.
const (
	CommandCreateEmbed = "create_embed"
	CommandEditEmbed   = "edit_embed"
	CommandListEmbeds  = "list_embeds"
)

// Builder steps. Buttons and the forms they open share the custom ID
// "embed|<step>|<draft id>".
const (
	EmbedBasics  = "basics"
	EmbedField   = "field"
	EmbedImage   = "image"
	EmbedAuthor  = "author"
	EmbedTicket  = "ticket"
	EmbedPreview = "preview"
	EmbedSend    = "send"
)

const embedPrefix = "embed|"

// Form inputs of the builder.
const (
	inputTitle       = "title"
	inputDescription = "description"
	inputColor       = "color"
	inputFooter      = "footer"
	inputThumbnail   = "thumbnail"
	inputName        = "name"
	inputValue       = "value"
	inputInline      = "inline"
	inputImage       = "image_url"
	inputAuthorName  = "author_name"
	inputAuthorIcon  = "author_icon"
	inputButtonText  = "button_text"
	inputCategoryID  = "category_id"
)

// Embeds is the builder surface the router drives.
type Embeds interface {
	NewDraft(ownerID string) service.EmbedDraft
	EditDraft(ownerID, embedID string) (service.EmbedDraft, error)
	Draft(id, ownerID string) (service.EmbedDraft, error)
	SetBasics(id, ownerID string, in service.EmbedBasics) (service.EmbedDraft, error)
	AddField(id, ownerID string, in service.FieldInput) (service.EmbedDraft, error)
	SetImage(id, ownerID, url string) (service.EmbedDraft, error)
	SetAuthor(id, ownerID string, in service.AuthorInput) (service.EmbedDraft, error)
	SetTicket(id, ownerID string, in service.TicketSettings) (service.EmbedDraft, error)
	Send(ctx context.Context, id, ownerID, channelID string) (string, error)
	List() []service.EmbedSummary
}

// EmbedControlID is the custom ID of builder step for draftID.
func EmbedControlID(step, draftID string) string {
	return embedPrefix + step + "|" + draftID
}

func parseEmbedControl(customID string) (step, draftID string, ok bool) {
	rest, ok := strings.CutPrefix(customID, embedPrefix)
	if !ok {
		return "", "", false
	}
	step, draftID, ok = strings.Cut(rest, "|")
	return step, draftID, ok && draftID != ""
}

func (r *Router) embedCommand(in Interaction) Response {
	if !r.isStaff(in.Member) {
		return privateText("Only staff can manage embeds.")
	}
	switch in.Command {
	case CommandCreateEmbed:
		return basicsModal("Create Embed", r.embeds.NewDraft(in.Member.ID))
	case CommandEditEmbed:
		draft, err := r.embeds.EditDraft(in.Member.ID, in.Options["embed_id"])
		if err != nil {
			return privateText("Embed not found. Use /list_embeds to see the stored IDs.")
		}
		return basicsModal("Edit Embed", draft)
	default:
		return private(service.EmbedListMessage(r.embeds.List()))
	}
}

func (r *Router) embedComponent(ctx context.Context, in Interaction, step, draftID string) Response {
	if !r.isStaff(in.Member) {
		return privateText("Only staff can manage embeds.")
	}
	draft, err := r.embeds.Draft(draftID, in.Member.ID)
	if err != nil {
		return draftExpired()
	}
	switch step {
	case EmbedBasics:
		return basicsModal("Edit Embed", draft)
	case EmbedField:
		return fieldModal(draft)
	case EmbedImage:
		return imageModal(draft)
	case EmbedAuthor:
		return authorModal(draft)
	case EmbedTicket:
		return ticketModal(draft)
	case EmbedPreview:
		msg := service.EmbedMessage(draft.Embed)
		msg.Content = "**Preview:**"
		return private(msg)
	case EmbedSend:
		id, err := r.embeds.Send(ctx, draftID, in.Member.ID, in.ChannelID)
		if err != nil {
			return r.embedFailed(draft, err)
		}
		return privateText("✅ Embed sent! (ID: " + id + ")")
	}
	return privateText("This button is no longer active.")
}

func (r *Router) embedModal(in Interaction, step, draftID string) Response {
	if !r.isStaff(in.Member) {
		return privateText("Only staff can manage embeds.")
	}
	owner := in.Member.ID
	f := in.Fields
	var (
		draft  service.EmbedDraft
		err    error
		status string
	)
	switch step {
	case EmbedBasics:
		draft, err = r.embeds.SetBasics(draftID, owner, service.EmbedBasics{
			Title:       f[inputTitle],
			Description: f[inputDescription],
			Color:       f[inputColor],
			Footer:      f[inputFooter],
			Thumbnail:   f[inputThumbnail],
		})
		status = "Embed ready! Choose additional options:"
	case EmbedField:
		draft, err = r.embeds.AddField(draftID, owner, service.FieldInput{Name: f[inputName], Value: f[inputValue], Inline: f[inputInline]})
		status = "Field added! Continue editing:"
	case EmbedImage:
		draft, err = r.embeds.SetImage(draftID, owner, f[inputImage])
		status = "Image added! Continue editing:"
	case EmbedAuthor:
		draft, err = r.embeds.SetAuthor(draftID, owner, service.AuthorInput{Name: f[inputAuthorName], IconURL: f[inputAuthorIcon]})
		status = "Author added! Continue editing:"
	case EmbedTicket:
		draft, err = r.embeds.SetTicket(draftID, owner, service.TicketSettings{ButtonText: f[inputButtonText], CategoryID: f[inputCategoryID]})
		status = "Ticket system configured! Continue editing:"
	default:
		return privateText("This form is no longer active.")
	}
	if err != nil {
		current, lookupErr := r.embeds.Draft(draftID, owner)
		if lookupErr != nil {
			return draftExpired()
		}
		return r.embedFailed(current, err)
	}
	return private(embedOptions(draft, status))
}

func (r *Router) embedFailed(draft service.EmbedDraft, err error) Response {
	var text string
	switch {
	case errorutil.IsCode(err, errorutil.CodeNotFound):
		return draftExpired()
	case errorutil.IsCode(err, errorutil.CodeValidation):
		text = "⚠️ " + err.Error() + ". Try again:"
	default:
		r.logger.Warn("embed builder failed", zap.String("draft_id", draft.ID), zap.Error(err))
		text = "❌ Unable to post the embed here. Check my permissions and try again:"
	}
	return private(embedOptions(draft, text))
}

func draftExpired() Response {
	return privateText("This embed draft has expired. Run /create_embed again.")
}

// embedOptions is the private control panel shown between builder steps.
func embedOptions(draft service.EmbedDraft, status string) platform.Message {
	id := draft.ID
	return platform.Message{
		Content: status,
		Rows: []platform.Row{
			{Buttons: []platform.Button{
				{Label: "📝 Add Field", CustomID: EmbedControlID(EmbedField, id), Style: platform.ButtonPrimary},
				{Label: "🖼️ Add Image", CustomID: EmbedControlID(EmbedImage, id), Style: platform.ButtonSecondary},
				{Label: "👤 Add Author", CustomID: EmbedControlID(EmbedAuthor, id), Style: platform.ButtonSecondary},
				{Label: "🎫 Ticket System", CustomID: EmbedControlID(EmbedTicket, id), Style: platform.ButtonSuccess},
				{Label: "✏️ Edit Text", CustomID: EmbedControlID(EmbedBasics, id), Style: platform.ButtonSecondary},
			}},
			{Buttons: []platform.Button{
				{Label: "👁️ Preview", CustomID: EmbedControlID(EmbedPreview, id), Style: platform.ButtonSecondary},
				{Label: "✅ Send Embed", CustomID: EmbedControlID(EmbedSend, id), Style: platform.ButtonSuccess},
			}},
		},
	}
}

func basicsModal(title string, draft service.EmbedDraft) Response {
	e := draft.Embed
	return newModal(EmbedControlID(EmbedBasics, draft.ID), title,
		TextInput{CustomID: inputTitle, Label: "Embed Title", Placeholder: "Enter the embed title...", MaxLength: 256, Value: e.Title},
		TextInput{CustomID: inputDescription, Label: "Embed Description", Placeholder: "Enter the embed description...", Paragraph: true, MaxLength: 4000, Value: e.Description},
		TextInput{CustomID: inputColor, Label: "Embed Color (hex)", Placeholder: "e.g., #FF0000 or 0xFF0000", MaxLength: 10, Value: e.Color},
		TextInput{CustomID: inputFooter, Label: "Footer Text", Placeholder: "Enter footer text...", MaxLength: 2048, Value: e.Footer},
		TextInput{CustomID: inputThumbnail, Label: "Thumbnail URL", Placeholder: "Enter image URL for thumbnail...", MaxLength: 2048, Value: e.Thumbnail},
	)
}

func fieldModal(draft service.EmbedDraft) Response {
	return newModal(EmbedControlID(EmbedField, draft.ID), "Add Field",
		TextInput{CustomID: inputName, Label: "Field Name", Placeholder: "Enter field name...", Required: true, MaxLength: 256},
		TextInput{CustomID: inputValue, Label: "Field Value", Placeholder: "Enter field value...", Paragraph: true, Required: true, MaxLength: 1024},
		TextInput{CustomID: inputInline, Label: "Inline (True/False)", Placeholder: "True or False", MaxLength: 5, Value: "False"},
	)
}

func imageModal(draft service.EmbedDraft) Response {
	return newModal(EmbedControlID(EmbedImage, draft.ID), "Add Image",
		TextInput{CustomID: inputImage, Label: "Image URL", Placeholder: "Enter image URL...", Required: true, MaxLength: 2048, Value: draft.Embed.Image},
	)
}

func authorModal(draft service.EmbedDraft) Response {
	var name, icon string
	if a := draft.Embed.Author; a != nil {
		name, icon = a.Name, a.IconURL
	}
	return newModal(EmbedControlID(EmbedAuthor, draft.ID), "Add Author",
		TextInput{CustomID: inputAuthorName, Label: "Author Name", Placeholder: "Enter author name...", Required: true, MaxLength: 256, Value: name},
		TextInput{CustomID: inputAuthorIcon, Label: "Author Icon URL", Placeholder: "Enter icon URL...", MaxLength: 2048, Value: icon},
	)
}

func ticketModal(draft service.EmbedDraft) Response {
	return newModal(EmbedControlID(EmbedTicket, draft.ID), "Ticket System Settings",
		TextInput{CustomID: inputButtonText, Label: "Ticket Button Text", Placeholder: "Create Ticket", MaxLength: 80, Value: draft.Embed.ButtonText()},
		TextInput{CustomID: inputCategoryID, Label: "Category ID (optional)", Placeholder: "Right-click category > Copy ID", MaxLength: 20, Value: string(draft.Embed.TicketCategoryID)},
	)
}

func newModal(customID, title string, inputs ...TextInput) Response {
	return Response{Kind: ReplyModal, Modal: &Modal{CustomID: customID, Title: title, Inputs: inputs}}
}
