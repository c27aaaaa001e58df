package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/classifier"
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/menu"
	"github.com/stksupply/ticket-bot/internal/platform"
	"github.com/stksupply/ticket-bot/internal/service"
)

const handlerTimeout = 30 * time.Second

// Intents the bot needs: guild structure and the member list for reports.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

var (
	staffOnly = int64(discordgo.PermissionManageServer)
	dmAllowed = false
)

// Commands are registered globally on every Ready. None of them are offered
// in direct messages.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:                     CommandPanel,
		Description:              "Post the shop or support panel in this channel",
		DefaultMemberPermissions: &staffOnly,
		DMPermission:             &dmAllowed,
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "type",
			Description: "Which panel to post",
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "shop", Value: "shop"},
				{Name: "support", Value: "support"},
			},
		}},
	},
	{Name: CommandTicket, Description: "Open a private support ticket", DMPermission: &dmAllowed},
	{Name: CommandNews, Description: "Show the latest news", DMPermission: &dmAllowed},
	{
		Name:                     CommandSetNews,
		Description:              "Update the latest news",
		DefaultMemberPermissions: &staffOnly,
		DMPermission:             &dmAllowed,
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Headline", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "content", Description: "Announcement text", Required: true},
		},
	},
	{Name: CommandReport, Description: "Show the community member report", DefaultMemberPermissions: &staffOnly, DMPermission: &dmAllowed},
	{Name: CommandCreateEmbed, Description: "Create a custom embed message", DefaultMemberPermissions: &staffOnly, DMPermission: &dmAllowed},
	{
		Name:                     CommandEditEmbed,
		Description:              "Edit a stored embed",
		DefaultMemberPermissions: &staffOnly,
		DMPermission:             &dmAllowed,
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "embed_id", Description: "ID shown by /list_embeds, e.g. embed_1", Required: true},
		},
	},
	{Name: CommandListEmbeds, Description: "List the stored embeds", DefaultMemberPermissions: &staffOnly, DMPermission: &dmAllowed},
}

// Session wires a Router and the channel classifier to a discordgo session.
type Session struct {
	dg        *discordgo.Session
	router    *Router
	chat      platform.Platform
	directory *service.ChannelDirectory
	graph     *menu.Graph
	autoPost  bool
	logger    *zap.Logger

	mu     sync.Mutex
	posted map[string]bool
}

// NewSession creates the glue. Call Register before opening dg.
func NewSession(dg *discordgo.Session, router *Router, chat platform.Platform, directory *service.ChannelDirectory, graph *menu.Graph, autoPost bool, logger *zap.Logger) *Session {
	return &Session{
		dg:        dg,
		router:    router,
		chat:      chat,
		directory: directory,
		graph:     graph,
		autoPost:  autoPost,
		logger:    logger,
		posted:    map[string]bool{},
	}
}

// Register installs the event handlers.
func (s *Session) Register() {
	s.dg.AddHandler(s.onReady)
	s.dg.AddHandler(s.onGuildCreate)
	s.dg.AddHandler(s.onGuildDelete)
	s.dg.AddHandler(s.onInteraction)
}

// Connected reports whether the gateway handshake completed.
func (s *Session) Connected() bool {
	return s.dg.DataReady
}

func (s *Session) onReady(dg *discordgo.Session, r *discordgo.Ready) {
	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}
	s.logger.Info("connected",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
	if _, err := dg.ApplicationCommandBulkOverwrite(appID, "", Commands); err != nil {
		s.logger.Error("unable to register commands", zap.Error(err))
	}
}

func (s *Session) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Unavailable {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	s.Detect(ctx, g.ID, g.Name)
}

func (s *Session) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	s.directory.Forget(g.ID)
}

// Detect classifies the channels of guildID and, once per process, posts
// the shop and support panels into the detected channels.
func (s *Session) Detect(ctx context.Context, guildID, guildName string) domain.DetectedChannels {
	logger := s.logger.With(zap.String("guild_id", guildID), zap.String("guild", guildName))
	channels, err := s.chat.Channels(ctx, guildID)
	if err != nil {
		logger.Warn("unable to list channels", zap.Error(err))
		return nil
	}
	detected := classifier.ClassifyChannels(channels)
	s.directory.Set(guildID, detected)

	fields := make([]zap.Field, 0, len(detected))
	for _, category := range classifier.Categories() {
		if id, ok := detected[category]; ok {
			fields = append(fields, zap.String(string(category), id))
		}
	}
	logger.Info("channels detected", fields...)

	if !s.autoPost || !s.firstVisit(guildID) {
		return detected
	}
	if id, ok := detected[domain.CategoryShop]; ok {
		if msg, err := s.graph.RenderRoot(); err != nil {
			logger.Error("unable to render shop panel", zap.Error(err))
		} else if err := s.chat.SendMessage(ctx, id, msg); err != nil {
			logger.Warn("unable to post shop panel", zap.String("channel_id", id), zap.Error(err))
		}
	}
	if id, ok := detected[domain.CategorySupport]; ok {
		if err := s.chat.SendMessage(ctx, id, SupportPanel()); err != nil {
			logger.Warn("unable to post support panel", zap.String("channel_id", id), zap.Error(err))
		}
	}
	return detected
}

func (s *Session) firstVisit(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.posted[guildID] {
		return false
	}
	s.posted[guildID] = true
	return true
}

func (s *Session) onInteraction(dg *discordgo.Session, i *discordgo.InteractionCreate) {
	in, ok := s.convert(dg, i)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	logger := s.logger.With(
		zap.String("guild_id", in.GuildID),
		zap.String("user_id", in.Member.ID),
		zap.String("command", in.Command),
		zap.String("custom_id", in.CustomID))

	if s.router.Deferred(in) {
		if err := dg.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
		}); err != nil {
			logger.Warn("unable to acknowledge interaction", zap.Error(err))
			return
		}
		resp := s.router.Handle(ctx, in)
		content := resp.Message.Content
		embeds := embedsOf(resp.Message)
		components := platform.Components(resp.Message.Rows)
		if _, err := dg.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Embeds:     &embeds,
			Components: &components,
		}); err != nil {
			logger.Warn("unable to answer interaction", zap.Error(err))
		}
		return
	}

	resp := s.router.Handle(ctx, in)
	if err := dg.InteractionRespond(i.Interaction, responseOf(resp)); err != nil {
		logger.Warn("unable to answer interaction", zap.Error(err))
	}
}

func (s *Session) convert(dg *discordgo.Session, i *discordgo.InteractionCreate) (Interaction, bool) {
	in := Interaction{GuildID: i.GuildID, ChannelID: i.ChannelID}
	switch {
	case i.Member != nil && i.Member.User != nil:
		in.Member = domain.Member{
			ID:          i.Member.User.ID,
			Username:    i.Member.User.Username,
			Bot:         i.Member.User.Bot,
			RoleIDs:     i.Member.Roles,
			Permissions: platform.PermissionsOf(i.Member.Permissions),
			JoinedAt:    i.Member.JoinedAt,
		}
		in.DisplayName = i.Member.Nick
		if in.DisplayName == "" {
			in.DisplayName = i.Member.User.GlobalName
		}
	case i.User != nil:
		in.Member = domain.Member{ID: i.User.ID, Username: i.User.Username, Bot: i.User.Bot}
	default:
		return Interaction{}, false
	}
	if in.GuildID != "" && dg.State != nil {
		if g, err := dg.State.Guild(in.GuildID); err == nil {
			in.GuildName = g.Name
		}
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		in.Kind = KindCommand
		in.Command = data.Name
		in.Options = map[string]string{}
		for _, opt := range data.Options {
			if opt.Type == discordgo.ApplicationCommandOptionString {
				in.Options[opt.Name] = opt.StringValue()
			}
		}
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		in.Kind = KindComponent
		in.CustomID = data.CustomID
		in.Values = data.Values
		in.Ephemeral = i.Message != nil && i.Message.Flags&discordgo.MessageFlagsEphemeral != 0
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		in.Kind = KindModalSubmit
		in.CustomID = data.CustomID
		in.Fields = map[string]string{}
		for _, row := range data.Components {
			actions, ok := row.(*discordgo.ActionsRow)
			if !ok {
				continue
			}
			for _, c := range actions.Components {
				if input, ok := c.(*discordgo.TextInput); ok {
					in.Fields[input.CustomID] = input.Value
				}
			}
		}
	default:
		return Interaction{}, false
	}
	return in, true
}

func embedsOf(msg platform.Message) []*discordgo.MessageEmbed {
	embeds := []*discordgo.MessageEmbed{}
	if msg.Embed != nil {
		embeds = append(embeds, platform.EmbedOf(msg.Embed))
	}
	return embeds
}

func responseOf(resp Response) *discordgo.InteractionResponse {
	switch resp.Kind {
	case ReplyModal:
		rows := make([]discordgo.MessageComponent, 0, len(resp.Modal.Inputs))
		for _, input := range resp.Modal.Inputs {
			style := discordgo.TextInputShort
			if input.Paragraph {
				style = discordgo.TextInputParagraph
			}
			rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    input.CustomID,
					Label:       input.Label,
					Style:       style,
					Placeholder: input.Placeholder,
					Required:    input.Required,
					MaxLength:   input.MaxLength,
					Value:       input.Value,
				},
			}})
		}
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: &discordgo.InteractionResponseData{
				CustomID:   resp.Modal.CustomID,
				Title:      resp.Modal.Title,
				Components: rows,
			},
		}
	case ReplyUpdate:
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    resp.Message.Content,
				Embeds:     embedsOf(resp.Message),
				Components: platform.Components(resp.Message.Rows),
			},
		}
	default:
		data := &discordgo.InteractionResponseData{
			Content:    resp.Message.Content,
			Embeds:     embedsOf(resp.Message),
			Components: platform.Components(resp.Message.Rows),
		}
		if resp.Ephemeral {
			data.Flags = discordgo.MessageFlagsEphemeral
		}
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		}
	}
}
