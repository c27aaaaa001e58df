package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/config"
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/events"
	"github.com/stksupply/ticket-bot/internal/platform"
)

const webhookTimeout = 5 * time.Second

// NotificationService mirrors domain events to the log, to the guild's
// detected logs channel and to an optional webhook. News updates are
// announced in the detected news channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	platform   platform.Platform
	directory  *ChannelDirectory
	client     *resty.Client
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, chat platform.Platform, directory *ChannelDirectory, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		platform:   chat,
		directory:  directory,
		client:     resty.New().SetTimeout(webhookTimeout),
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventOrderCompleted, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventNewsUpdated, n.handleNewsUpdated)
}

func (n *NotificationService) handleTicketEvent(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketPayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
	}
	ticket := payload.Ticket
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket", ticket.DisplayNumber()),
		zap.String("kind", string(ticket.Kind)),
		zap.String("guild_id", event.GuildID),
		zap.String("channel_id", event.ChannelID),
		zap.String("actor_id", event.ActorID))

	n.postToLogs(ctx, event.GuildID, auditMessage(event, ticket))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleNewsUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NewsPayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
	}
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("guild_id", event.GuildID),
		zap.String("title", payload.News.Title))

	if channelID, ok := n.lookup(event.GuildID, domain.CategoryNews); ok {
		if err := n.platform.SendMessage(ctx, channelID, NewsMessage(payload.News)); err != nil {
			n.logger.Warn("unable to announce news", zap.String("channel_id", channelID), zap.Error(err))
		}
	}
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) lookup(guildID string, category domain.ChannelCategory) (string, bool) {
	if n.directory == nil || guildID == "" {
		return "", false
	}
	return n.directory.Lookup(guildID, category)
}

func (n *NotificationService) postToLogs(ctx context.Context, guildID string, msg platform.Message) {
	channelID, ok := n.lookup(guildID, domain.CategoryLogs)
	if !ok {
		return
	}
	if err := n.platform.SendMessage(ctx, channelID, msg); err != nil {
		n.logger.Warn("unable to post to logs channel", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(url)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("webhook rejected event",
			zap.String("event_type", string(event.Type)),
			zap.Int("status", resp.StatusCode()))
		return
	}
	n.logger.Debug("webhook delivered", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
}

func auditMessage(event events.Event, ticket domain.TicketRecord) platform.Message {
	title := map[events.EventType]string{
		events.EventTicketCreated:  "Ticket opened",
		events.EventTicketClosed:   "Ticket closed",
		events.EventOrderCompleted: "Order completed",
	}[event.Type]
	fields := []platform.EmbedField{
		{Name: "Ticket", Value: ticket.DisplayNumber(), Inline: true},
		{Name: "Kind", Value: string(ticket.Kind), Inline: true},
		{Name: "User", Value: "<@" + ticket.UserID + ">", Inline: true},
	}
	if event.ActorID != "" && event.ActorID != ticket.UserID {
		fields = append(fields, platform.EmbedField{Name: "By", Value: "<@" + event.ActorID + ">", Inline: true})
	}
	if ticket.Kind == domain.TicketKindOrder {
		fields = append(fields, platform.EmbedField{Name: "Order", Value: ticket.Shop + " / " + ticket.Category})
	} else if ticket.Reason != "" {
		fields = append(fields, platform.EmbedField{Name: "Reason", Value: ticket.Reason})
	}
	color := colorSupport
	switch event.Type {
	case events.EventTicketClosed:
		color = colorClosed
	case events.EventOrderCompleted:
		color = colorDone
	}
	return platform.Message{Embed: &platform.Embed{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Timestamp: event.Timestamp,
	}}
}

// NewsMessage renders the announcement shown by /news and in the news
// channel.
func NewsMessage(news domain.News) platform.Message {
	embed := &platform.Embed{
		Title:       news.Title,
		Description: news.Content,
		Color:       colorNews,
	}
	if !news.LastUpdated.IsZero() {
		embed.Footer = "Last updated"
		embed.Timestamp = news.LastUpdated.Time
	}
	return platform.Message{Embed: embed}
}
