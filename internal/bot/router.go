package bot

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/classifier"
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/menu"
	"github.com/stksupply/ticket-bot/internal/platform"
	"github.com/stksupply/ticket-bot/internal/service"
	"github.com/stksupply/ticket-bot/pkg/util/errorutil"
)

// Slash command names.
const (
	CommandPanel   = "panel"
	CommandTicket  = "ticket"
	CommandNews    = "news"
	CommandSetNews = "setnews"
	CommandReport  = "report"
)

// Custom IDs owned by the router. Both support IDs may carry a
// "|<category id>" suffix naming the channel group of the ticket.
const (
	ControlOpenSupport = service.ControlOpenSupport
	ModalSupport       = "modal|support"
	FieldReason        = "reason"
)

// Tickets is the lifecycle surface the router drives.
type Tickets interface {
	CreateSupportTicket(ctx context.Context, req domain.Requester, reason string) (*domain.TicketRecord, error)
	CreateOrderTicket(ctx context.Context, req domain.Requester, shop, category string) (*domain.TicketRecord, error)
	CloseTicket(ctx context.Context, channelID, actorID string) (*domain.TicketRecord, error)
	CompleteOrder(ctx context.Context, channelID, actorID string) (*domain.TicketRecord, error)
	Ticket(channelID string) (domain.TicketRecord, bool)
	UpdateNews(ctx context.Context, guildID, actorID, title, content string) (domain.News, error)
	News() domain.News
}

// Reporter produces member reports for /report.
type Reporter interface {
	Report(ctx context.Context, guildID string) (domain.MemberReport, error)
}

// Router answers interactions.
type Router struct {
	tickets    Tickets
	reports    Reporter
	embeds     Embeds
	graph      *menu.Graph
	staffRoles []string
	logger     *zap.Logger
}

// NewRouter creates a router. staffRoles are the role IDs allowed to run
// staff actions besides administrators.
func NewRouter(tickets Tickets, reports Reporter, embeds Embeds, graph *menu.Graph, staffRoles []string, logger *zap.Logger) *Router {
	return &Router{
		tickets:    tickets,
		reports:    reports,
		embeds:     embeds,
		graph:      graph,
		staffRoles: staffRoles,
		logger:     logger,
	}
}

// Handle answers in. It never fails: problems become private replies.
// Everything the router does needs a server, so direct messages are
// refused.
func (r *Router) Handle(ctx context.Context, in Interaction) Response {
	if in.GuildID == "" {
		return privateText("This bot only works inside a server.")
	}
	switch in.Kind {
	case KindCommand:
		return r.command(ctx, in)
	case KindComponent:
		return r.component(ctx, in)
	case KindModalSubmit:
		return r.modal(ctx, in)
	}
	return privateText("Unsupported interaction.")
}

// Deferred reports whether handling in makes several platform calls. Such
// interactions are acknowledged first and answered privately afterwards.
func (r *Router) Deferred(in Interaction) bool {
	switch in.Kind {
	case KindModalSubmit:
		return true
	case KindCommand:
		return in.Command == CommandReport || in.Command == CommandSetNews
	case KindComponent:
		switch in.CustomID {
		case service.ControlCloseTicket, service.ControlCloseOrder, service.ControlCompleteOrder:
			return true
		}
		if step, _, ok := parseEmbedControl(in.CustomID); ok {
			return step == EmbedSend
		}
		if menu.IsMenuID(in.CustomID) {
			out, err := r.graph.Resolve(in.CustomID, in.Values)
			return err == nil && out.Effect != nil && out.Effect.Kind == menu.EffectOrder
		}
	}
	return false
}

func (r *Router) command(ctx context.Context, in Interaction) Response {
	switch in.Command {
	case CommandPanel:
		if !r.isStaff(in.Member) {
			return privateText("Only staff can post panels.")
		}
		if strings.EqualFold(in.Options["type"], "support") {
			return reply(SupportPanel())
		}
		msg, err := r.graph.RenderRoot()
		if err != nil {
			r.logger.Error("unable to render shop panel", zap.Error(err))
			return privateText("The shop panel is unavailable right now.")
		}
		return reply(msg)
	case CommandTicket:
		return supportModal("")
	case CommandCreateEmbed, CommandEditEmbed, CommandListEmbeds:
		return r.embedCommand(in)
	case CommandNews:
		return private(service.NewsMessage(r.tickets.News()))
	case CommandSetNews:
		if !r.isStaff(in.Member) {
			return privateText("Only staff can update the news.")
		}
		news, err := r.tickets.UpdateNews(ctx, in.GuildID, in.Member.ID, in.Options["title"], in.Options["content"])
		if err != nil {
			return privateText("News needs a title and content.")
		}
		return private(service.NewsMessage(news))
	case CommandReport:
		if !r.isStaff(in.Member) {
			return privateText("Only staff can view the community report.")
		}
		report, err := r.reports.Report(ctx, in.GuildID)
		if err != nil {
			r.logger.Warn("community report failed", zap.String("guild_id", in.GuildID), zap.Error(err))
			return privateText("Unable to build the report right now.")
		}
		return private(service.ReportMessage(in.GuildName, report))
	}
	return privateText("Unknown command.")
}

func (r *Router) component(ctx context.Context, in Interaction) Response {
	if category, ok := supportCategory(in.CustomID, ControlOpenSupport); ok {
		return supportModal(category)
	}
	if step, draftID, ok := parseEmbedControl(in.CustomID); ok {
		return r.embedComponent(ctx, in, step, draftID)
	}
	switch in.CustomID {
	case service.ControlCloseTicket, service.ControlCloseOrder:
		return r.closeTicket(ctx, in)
	case service.ControlCompleteOrder:
		return r.completeOrder(ctx, in)
	}
	if menu.IsMenuID(in.CustomID) {
		return r.navigate(ctx, in)
	}
	r.logger.Debug("unknown component", zap.String("custom_id", in.CustomID))
	return privateText("This button is no longer active.")
}

func (r *Router) navigate(ctx context.Context, in Interaction) Response {
	out, err := r.graph.Resolve(in.CustomID, in.Values)
	if err != nil {
		r.logger.Debug("unresolvable menu payload", zap.String("custom_id", in.CustomID), zap.Error(err))
		return privateText("This menu is out of date. Please open the shop panel again.")
	}
	if out.Effect == nil {
		msg, err := r.graph.Render(out.Screen, out.ShopID)
		if err != nil {
			r.logger.Error("unable to render screen", zap.String("screen", out.Screen), zap.Error(err))
			return privateText("This menu is unavailable right now.")
		}
		// The public panel stays untouched; navigation continues privately.
		if in.Ephemeral {
			return update(msg)
		}
		return private(msg)
	}

	switch out.Effect.Kind {
	case menu.EffectSupport:
		return supportModal("")
	case menu.EffectOrder:
		record, err := r.tickets.CreateOrderTicket(ctx, requesterOf(in), out.Effect.Shop, out.Effect.Category)
		if err != nil {
			return r.creationFailed(in, err)
		}
		return privateText("🛒 Your order ticket " + record.DisplayNumber() + " is ready: <#" + record.ChannelID + ">")
	}
	return privateText("This menu is out of date. Please open the shop panel again.")
}

func (r *Router) modal(ctx context.Context, in Interaction) Response {
	if step, draftID, ok := parseEmbedControl(in.CustomID); ok {
		return r.embedModal(in, step, draftID)
	}
	category, ok := supportCategory(in.CustomID, ModalSupport)
	if !ok {
		return privateText("This form is no longer active.")
	}
	req := requesterOf(in)
	req.ParentID = category
	record, err := r.tickets.CreateSupportTicket(ctx, req, in.Fields[FieldReason])
	if err != nil {
		return r.creationFailed(in, err)
	}
	return privateText("🎫 Your ticket " + record.DisplayNumber() + " is ready: <#" + record.ChannelID + ">")
}

func (r *Router) closeTicket(ctx context.Context, in Interaction) Response {
	record, ok := r.tickets.Ticket(in.ChannelID)
	if !ok {
		return privateText("There is no open ticket in this channel.")
	}
	if record.UserID != in.Member.ID && !r.isStaff(in.Member) {
		return privateText("Only the ticket owner or staff can close this ticket.")
	}
	if _, err := r.tickets.CloseTicket(ctx, in.ChannelID, in.Member.ID); err != nil {
		r.logger.Error("close ticket failed", zap.String("channel_id", in.ChannelID), zap.Error(err))
		return privateText("Unable to close this ticket right now.")
	}
	return privateText("Closing " + record.DisplayNumber() + ".")
}

func (r *Router) completeOrder(ctx context.Context, in Interaction) Response {
	if !r.isStaff(in.Member) {
		return privateText("Only staff can complete orders.")
	}
	record, err := r.tickets.CompleteOrder(ctx, in.ChannelID, in.Member.ID)
	if err != nil {
		r.logger.Error("complete order failed", zap.String("channel_id", in.ChannelID), zap.Error(err))
		return privateText("Unable to complete this order right now.")
	}
	if record == nil {
		return privateText("There is no open order in this channel.")
	}
	return privateText("Completed " + record.DisplayNumber() + ".")
}

func (r *Router) creationFailed(in Interaction, err error) Response {
	if reason, ok := errorutil.RejectionReason(err); ok {
		switch reason {
		case errorutil.RejectReasonSpam:
			return privateText("⚠️ Please describe your issue in a bit more detail so staff can help you.")
		case errorutil.RejectReasonDuplicate:
			return privateText("⚠️ You already have an open support ticket. Please use that one.")
		}
		return privateText("⚠️ Your request was rejected.")
	}
	if errorutil.IsCode(err, errorutil.CodeValidation) {
		return privateText("⚠️ Your request is too long or incomplete.")
	}
	var domainErr *errorutil.DomainError
	if !errors.As(err, &domainErr) {
		r.logger.Error("ticket creation failed",
			zap.String("guild_id", in.GuildID),
			zap.String("user_id", in.Member.ID),
			zap.Error(err))
	}
	return privateText("❌ Unable to create your ticket right now. Please try again later.")
}

func (r *Router) isStaff(m domain.Member) bool {
	return classifier.IsStaff(m, r.staffRoles)
}

func requesterOf(in Interaction) domain.Requester {
	name := in.DisplayName
	if name == "" {
		name = in.Member.Username
	}
	return domain.Requester{GuildID: in.GuildID, UserID: in.Member.ID, DisplayName: name}
}

// supportCategory matches base or base|<category id>.
func supportCategory(customID, base string) (string, bool) {
	if customID == base {
		return "", true
	}
	category, ok := strings.CutPrefix(customID, base+"|")
	return category, ok && category != ""
}

func supportModal(category string) Response {
	id := ModalSupport
	if category != "" {
		id += "|" + category
	}
	return Response{Kind: ReplyModal, Modal: &Modal{
		CustomID: id,
		Title:    "Contact Support",
		Inputs: []TextInput{{
			CustomID:    FieldReason,
			Label:       "How can we help?",
			Placeholder: "Describe your issue",
			Paragraph:   true,
			MaxLength:   domain.MaxReasonLength,
		}},
	}}
}

// SupportPanel is the message posted in the support channel.
func SupportPanel() platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "🎫 Support",
			Description: "Need help with an order or have a question? Press the button below to open a private ticket with staff.",
			Color:       0x5865F2,
		},
		Rows: []platform.Row{{Buttons: []platform.Button{
			{Label: "📨 Create Ticket", CustomID: ControlOpenSupport, Style: platform.ButtonPrimary},
		}}},
	}
}
