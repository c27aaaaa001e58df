package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/config"
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/events"
	"github.com/stksupply/ticket-bot/internal/observability"
	"github.com/stksupply/ticket-bot/internal/persistence"
	"github.com/stksupply/ticket-bot/internal/platform"
	"github.com/stksupply/ticket-bot/pkg/util/errorutil"
)

// Custom IDs of the controls posted into ticket channels.
const (
	ControlCloseTicket   = "ticket|close"
	ControlCompleteOrder = "order|complete"
	ControlCloseOrder    = "order|close"
)

const (
	colorSupport = 0x5865F2
	colorOrder   = 0xFEE75C
	colorClosed  = 0xED4245
	colorDone    = 0x57F287
	colorNews    = 0x3498DB

	// platformTimeout bounds the detached calls made by deferred deletion.
	platformTimeout = 15 * time.Second
)

// TicketService owns the open-ticket maps and the ticket counter. Every
// mutation is persisted before the method returns.
type TicketService struct {
	mu         sync.Mutex
	snap       *domain.Snapshot
	seq        sequence
	categories map[string]string
	// opening holds guild|user keys of support tickets being created.
	opening map[string]struct{}
	// categoryLocks serializes find-or-create per guild and category name.
	categoryLocks map[string]*sync.Mutex

	store      *persistence.SoftStore
	platform   platform.Platform
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	scheduler  *DeletionScheduler
	logger     *zap.Logger
	validate   *validator.Validate
	discord    config.DiscordConfig
	tickets    config.TicketConfig
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      *persistence.SoftStore
	Platform   platform.Platform
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Scheduler  *DeletionScheduler
	Logger     *zap.Logger
	Discord    config.DiscordConfig
	Tickets    config.TicketConfig
	// Now defaults to time.Now.
	Now func() time.Time
}

type supportInput struct {
	Reason string `validate:"max=1000"`
}

type orderInput struct {
	Shop     string `validate:"required,max=100"`
	Category string `validate:"required,max=200"`
}

type newsInput struct {
	Title   string `validate:"required,max=256"`
	Content string `validate:"required,max=4000"`
}

// NewTicketService loads the persisted snapshot and constructs the service.
func NewTicketService(ctx context.Context, deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = NewDeletionScheduler(nil)
	}
	snap := deps.Store.Load(ctx)
	return &TicketService{
		snap:          snap,
		seq:           sequence{snap: snap},
		categories:    map[string]string{},
		opening:       map[string]struct{}{},
		categoryLocks: map[string]*sync.Mutex{},
		store:         deps.Store,
		platform:      deps.Platform,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		scheduler:     scheduler,
		logger:        logger,
		validate:      validator.New(),
		discord:       deps.Discord,
		tickets:       deps.Tickets,
		now:           now,
	}
}

// CreateSupportTicket opens a private support channel for the requester.
// Short low-effort reasons are rejected with errorutil.RejectReasonSpam.
func (s *TicketService) CreateSupportTicket(ctx context.Context, req domain.Requester, reason string) (*domain.TicketRecord, error) {
	reason = strings.TrimSpace(reason)
	if err := s.validate.Struct(supportInput{Reason: reason}); err != nil {
		return nil, errorutil.NewValidationError("reason too long", map[string]any{
			"max": domain.MaxReasonLength,
		})
	}
	if IsSpam(reason) {
		s.logger.Info("support ticket rejected",
			zap.String("guild_id", req.GuildID),
			zap.String("user_id", req.UserID),
			zap.String("reason", errorutil.RejectReasonSpam))
		s.metrics.RecordTicket(string(domain.TicketKindSupport), "rejected")
		return nil, errorutil.NewRejected(errorutil.RejectReasonSpam)
	}
	return s.open(ctx, domain.TicketRecord{
		Kind:    domain.TicketKindSupport,
		GuildID: req.GuildID,
		UserID:  req.UserID,
		Reason:  reason,
	}, req)
}

// CreateOrderTicket opens a private order channel for a storefront pick.
// Orders are not spam filtered.
func (s *TicketService) CreateOrderTicket(ctx context.Context, req domain.Requester, shop, category string) (*domain.TicketRecord, error) {
	input := orderInput{Shop: strings.TrimSpace(shop), Category: strings.TrimSpace(category)}
	if err := s.validate.Struct(input); err != nil {
		return nil, errorutil.NewValidationError("invalid order", map[string]any{
			"error": err.Error(),
		})
	}
	return s.open(ctx, domain.TicketRecord{
		Kind:     domain.TicketKindOrder,
		GuildID:  req.GuildID,
		UserID:   req.UserID,
		Shop:     input.Shop,
		Category: input.Category,
	}, req)
}

func (s *TicketService) open(ctx context.Context, record domain.TicketRecord, req domain.Requester) (*domain.TicketRecord, error) {
	if record.GuildID == "" {
		return nil, errorutil.NewValidationError("tickets can only be opened inside a server", nil)
	}
	ownerKey := record.GuildID + "|" + record.UserID

	s.mu.Lock()
	if record.Kind == domain.TicketKindSupport {
		if existing, ok := s.openSupportLocked(ownerKey); ok {
			s.mu.Unlock()
			s.logger.Info("support ticket rejected",
				zap.String("guild_id", record.GuildID),
				zap.String("user_id", record.UserID),
				zap.String("existing_channel_id", existing),
				zap.String("reason", errorutil.RejectReasonDuplicate))
			s.metrics.RecordTicket(string(record.Kind), "rejected")
			return nil, errorutil.NewRejected(errorutil.RejectReasonDuplicate)
		}
		s.opening[ownerKey] = struct{}{}
		defer func() {
			s.mu.Lock()
			delete(s.opening, ownerKey)
			s.mu.Unlock()
		}()
	}
	record.Number = s.seq.next()
	s.persistLocked(ctx)
	s.mu.Unlock()

	logger := s.logger.With(
		zap.String("ticket", record.DisplayNumber()),
		zap.String("kind", string(record.Kind)),
		zap.String("guild_id", record.GuildID),
		zap.String("user_id", record.UserID))

	parentID := s.parent(ctx, record, req)
	channelID, err := s.platform.CreateTextChannel(ctx, platform.ChannelSpec{
		GuildID:  record.GuildID,
		Name:     channelName(record),
		ParentID: parentID,
		Topic:    channelTopic(record, req),
		Grants:   s.grants(record),
	})
	if err != nil {
		logger.Error("unable to create ticket channel", zap.Error(err))
		s.metrics.RecordTicket(string(record.Kind), "failed")
		return nil, fmt.Errorf("create ticket channel: %w", err)
	}

	record.ChannelID = channelID
	record.CreatedAt = domain.NewTimestamp(s.now().UTC())

	s.mu.Lock()
	stored := record
	s.snap.Tickets(record.Kind)[channelID] = &stored
	s.persistLocked(ctx)
	s.mu.Unlock()

	logger.Info("ticket opened", zap.String("channel_id", channelID))
	s.metrics.RecordTicket(string(record.Kind), "created")

	if err := s.platform.SendMessage(ctx, channelID, announcement(record)); err != nil {
		logger.Warn("unable to announce ticket", zap.String("channel_id", channelID), zap.Error(err))
	}
	s.publish(ctx, events.EventTicketCreated, record, req.UserID)
	return &record, nil
}

// openSupportLocked reports the channel of an open support ticket owned by
// ownerKey. A creation still in flight counts as open.
func (s *TicketService) openSupportLocked(ownerKey string) (string, bool) {
	if _, ok := s.opening[ownerKey]; ok {
		return "", true
	}
	for channelID, record := range s.snap.ActiveTickets {
		if record.GuildID+"|"+record.UserID == ownerKey {
			return channelID, true
		}
	}
	return "", false
}

// CloseTicket removes the record for channelID, posts a closing notice and
// schedules the channel for deletion. Unknown channels are a no-op and
// return nil, nil.
func (s *TicketService) CloseTicket(ctx context.Context, channelID, actorID string) (*domain.TicketRecord, error) {
	record, ok := s.remove(ctx, channelID)
	if !ok {
		s.logger.Debug("close ignored; no open ticket", zap.String("channel_id", channelID))
		return nil, nil
	}
	s.finish(ctx, record, closingNotice(s.tickets.CloseDelay()))
	s.metrics.RecordTicket(string(record.Kind), "closed")
	s.publish(ctx, events.EventTicketClosed, *record, actorID)
	return record, nil
}

// CompleteOrder closes channelID with a completion notice and grants the
// requester the customer role when one is configured.
func (s *TicketService) CompleteOrder(ctx context.Context, channelID, actorID string) (*domain.TicketRecord, error) {
	record, ok := s.remove(ctx, channelID)
	if !ok {
		s.logger.Debug("complete ignored; no open ticket", zap.String("channel_id", channelID))
		return nil, nil
	}
	if role := s.discord.CustomerRoleID; role != "" {
		if err := s.platform.AddRole(ctx, record.GuildID, record.UserID, role); err != nil {
			s.logger.Warn("unable to grant customer role",
				zap.String("ticket", record.DisplayNumber()),
				zap.String("user_id", record.UserID),
				zap.Error(err))
		}
	}
	s.finish(ctx, record, completionNotice(s.tickets.CloseDelay()))
	s.metrics.RecordTicket(string(record.Kind), "completed")
	s.publish(ctx, events.EventOrderCompleted, *record, actorID)
	return record, nil
}

func (s *TicketService) remove(ctx context.Context, channelID string) (*domain.TicketRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.snap.Find(channelID)
	if !ok {
		return nil, false
	}
	delete(s.snap.ActiveTickets, channelID)
	delete(s.snap.ActiveOrderTickets, channelID)
	s.persistLocked(ctx)
	copied := *record
	return &copied, true
}

func (s *TicketService) finish(ctx context.Context, record *domain.TicketRecord, notice platform.Message) {
	logger := s.logger.With(
		zap.String("ticket", record.DisplayNumber()),
		zap.String("channel_id", record.ChannelID))
	if err := s.platform.SendMessage(ctx, record.ChannelID, notice); err != nil {
		logger.Warn("unable to post closing notice", zap.Error(err))
	}
	channelID := record.ChannelID
	s.scheduler.Schedule(channelID, s.tickets.CloseDelay(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), platformTimeout)
		defer cancel()
		if err := s.platform.DeleteChannel(ctx, channelID); err != nil {
			logger.Warn("unable to delete ticket channel", zap.Error(err))
			return
		}
		logger.Info("ticket channel deleted")
	})
	logger.Info("ticket closed", zap.Duration("delete_after", s.tickets.CloseDelay()))
}

// UpdateNews replaces the persisted announcement.
func (s *TicketService) UpdateNews(ctx context.Context, guildID, actorID, title, content string) (domain.News, error) {
	input := newsInput{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)}
	if err := s.validate.Struct(input); err != nil {
		return domain.News{}, errorutil.NewValidationError("invalid news", map[string]any{
			"error": err.Error(),
		})
	}
	news := domain.News{
		Title:       input.Title,
		Content:     input.Content,
		LastUpdated: domain.NewTimestamp(s.now().UTC()),
	}
	s.mu.Lock()
	s.snap.News = news
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("news updated", zap.String("guild_id", guildID), zap.String("title", news.Title))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:    events.EventNewsUpdated,
			GuildID: guildID,
			ActorID: actorID,
			Payload: events.NewsPayload{News: news},
		})
	}
	return news, nil
}

// News returns the current announcement.
func (s *TicketService) News() domain.News {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.News
}

// OpenTickets lists every open ticket ordered by number.
func (s *TicketService) OpenTickets() []domain.TicketRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TicketRecord, 0, len(s.snap.ActiveTickets)+len(s.snap.ActiveOrderTickets))
	for _, r := range s.snap.ActiveTickets {
		out = append(out, *r)
	}
	for _, r := range s.snap.ActiveOrderTickets {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Ticket returns the open ticket living in channelID.
func (s *TicketService) Ticket(channelID string) (domain.TicketRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.snap.Find(channelID)
	if !ok {
		return domain.TicketRecord{}, false
	}
	return *record, true
}

// NextNumber is the number the next ticket will receive.
func (s *TicketService) NextNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.TicketCounter
}

// Shutdown cancels pending channel deletions.
func (s *TicketService) Shutdown() {
	if n := s.scheduler.Stop(); n > 0 {
		s.logger.Info("cancelled pending channel deletions", zap.Int("count", n))
	}
}

func (s *TicketService) persistLocked(ctx context.Context) {
	s.store.Save(ctx, s.snap)
}

// update runs fn on the snapshot and persists the result.
func (s *TicketService) update(ctx context.Context, fn func(*domain.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.snap)
	s.persistLocked(ctx)
}

// view runs fn on the snapshot without persisting. fn must not retain it.
func (s *TicketService) view(fn func(*domain.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.snap)
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, record domain.TicketRecord, actorID string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:      eventType,
		GuildID:   record.GuildID,
		ChannelID: record.ChannelID,
		ActorID:   actorID,
		Payload:   events.TicketPayload{Ticket: record},
	})
}

func (s *TicketService) categoryName(kind domain.TicketKind) string {
	if kind == domain.TicketKindOrder {
		return s.tickets.OrderCategory
	}
	return s.tickets.SupportCategory
}

// parent returns the channel group requested by req when it exists in the
// guild, otherwise the configured category for the ticket kind.
func (s *TicketService) parent(ctx context.Context, record domain.TicketRecord, req domain.Requester) string {
	if req.ParentID != "" {
		channels, err := s.platform.Channels(ctx, record.GuildID)
		for _, ch := range channels {
			if ch.ID == req.ParentID && ch.Type == domain.ChannelTypeGroup {
				return ch.ID
			}
		}
		s.logger.Warn("requested ticket category unavailable; using the default",
			zap.String("guild_id", record.GuildID),
			zap.String("category_id", req.ParentID),
			zap.Error(err))
	}
	return s.category(ctx, record.GuildID, s.categoryName(record.Kind))
}

// category finds or creates the channel group for name. A failure leaves
// the ticket channel ungrouped.
func (s *TicketService) category(ctx context.Context, guildID, name string) string {
	key := guildID + "|" + strings.ToLower(name)
	s.mu.Lock()
	lock, ok := s.categoryLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.categoryLocks[key] = lock
	}
	s.mu.Unlock()

	// Held across the platform calls so concurrent first tickets share one
	// category.
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	id, ok := s.categories[key]
	s.mu.Unlock()
	if ok {
		return id
	}

	channels, err := s.platform.Channels(ctx, guildID)
	if err != nil {
		s.logger.Warn("unable to list channels", zap.String("guild_id", guildID), zap.Error(err))
	}
	for _, ch := range channels {
		if ch.Type == domain.ChannelTypeGroup && strings.EqualFold(ch.Name, name) {
			id = ch.ID
			break
		}
	}
	if id == "" {
		id, err = s.platform.CreateCategory(ctx, guildID, name)
		if err != nil {
			s.logger.Warn("unable to create ticket category",
				zap.String("guild_id", guildID),
				zap.String("category", name),
				zap.Error(err))
			return ""
		}
	}

	s.mu.Lock()
	s.categories[key] = id
	s.mu.Unlock()
	return id
}

// grants denies everyone and allows the requester, the bot and the
// configured staff roles.
func (s *TicketService) grants(record domain.TicketRecord) []platform.Grant {
	grants := []platform.Grant{
		{ID: record.GuildID, Target: platform.GrantRole, Allow: false},
		{ID: record.UserID, Target: platform.GrantMember, Allow: true},
	}
	if self := s.platform.SelfID(); self != "" {
		grants = append(grants, platform.Grant{ID: self, Target: platform.GrantMember, Allow: true})
	}
	for _, role := range s.discord.StaffRoles() {
		grants = append(grants, platform.Grant{ID: role, Target: platform.GrantRole, Allow: true})
	}
	return grants
}

func channelName(record domain.TicketRecord) string {
	prefix := "ticket"
	if record.Kind == domain.TicketKindOrder {
		prefix = "order"
	}
	return fmt.Sprintf("%s-%04d", prefix, record.Number)
}

func channelTopic(record domain.TicketRecord, req domain.Requester) string {
	who := req.DisplayName
	if who == "" {
		who = record.UserID
	}
	if record.Kind == domain.TicketKindOrder {
		return fmt.Sprintf("Order %s for %s: %s / %s", record.DisplayNumber(), who, record.Shop, record.Category)
	}
	return fmt.Sprintf("Support ticket %s for %s", record.DisplayNumber(), who)
}

func announcement(record domain.TicketRecord) platform.Message {
	mention := "<@" + record.UserID + ">"
	if record.Kind == domain.TicketKindOrder {
		return platform.Message{
			Content: mention,
			Embed: &platform.Embed{
				Title:       "🛒 Order " + record.DisplayNumber(),
				Description: "Thanks for your order! A staff member will confirm payment and delivery here.",
				Color:       colorOrder,
				Fields: []platform.EmbedField{
					{Name: "Shop", Value: record.Shop, Inline: true},
					{Name: "Product", Value: record.Category, Inline: true},
				},
				Footer:    "Staff: press Complete once the order is delivered",
				Timestamp: record.CreatedAt.Time,
			},
			Rows: []platform.Row{{Buttons: []platform.Button{
				{Label: "✅ Complete", CustomID: ControlCompleteOrder, Style: platform.ButtonSuccess},
				{Label: "🔒 Close", CustomID: ControlCloseOrder, Style: platform.ButtonDanger},
			}}},
		}
	}
	reason := record.Reason
	if reason == "" {
		reason = "_No reason given_"
	}
	return platform.Message{
		Content: mention,
		Embed: &platform.Embed{
			Title:       "🎫 Support Ticket " + record.DisplayNumber(),
			Description: "Thank you for creating a ticket. A staff member will be with you shortly.",
			Color:       colorSupport,
			Fields:      []platform.EmbedField{{Name: "Reason", Value: reason}},
			Timestamp:   record.CreatedAt.Time,
		},
		Rows: []platform.Row{{Buttons: []platform.Button{
			{Label: "🔒 Close Ticket", CustomID: ControlCloseTicket, Style: platform.ButtonDanger},
		}}},
	}
}

func closingNotice(delay time.Duration) platform.Message {
	return platform.Message{Embed: &platform.Embed{
		Title:       "🔒 Ticket Closed",
		Description: fmt.Sprintf("This channel will be deleted in %s.", humanDelay(delay)),
		Color:       colorClosed,
	}}
}

func completionNotice(delay time.Duration) platform.Message {
	return platform.Message{Embed: &platform.Embed{
		Title:       "✅ Order Completed",
		Description: fmt.Sprintf("Thanks for shopping with us! This channel will be deleted in %s.", humanDelay(delay)),
		Color:       colorDone,
	}}
}

func humanDelay(d time.Duration) string {
	secs := int(d / time.Second)
	if secs == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", secs)
}
