package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stksupply/ticket-bot/internal/api/dto"
	"github.com/stksupply/ticket-bot/internal/auth"
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/observability"
	apperrors "github.com/stksupply/ticket-bot/pkg/util/errorutil"
)

// TicketReader is the part of the ticket service the admin API exposes.
type TicketReader interface {
	OpenTickets() []domain.TicketRecord
	Ticket(channelID string) (domain.TicketRecord, bool)
	NextNumber() int
	News() domain.News
	UpdateNews(ctx context.Context, guildID, actorID, title, content string) (domain.News, error)
}

// AdminHandler serves the operator API.
type AdminHandler struct {
	tickets TicketReader
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(tickets TicketReader, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{tickets: tickets, metrics: metrics}
}

// ListTickets GET /admin/tickets?kind=support|order.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	kind := domain.TicketKind(strings.ToLower(c.Query("kind")))
	switch kind {
	case "", domain.TicketKindSupport, domain.TicketKindOrder:
	default:
		return apperrors.NewValidationError("kind must be support or order", map[string]any{"kind": kind})
	}

	items := []dto.TicketResponse{}
	for _, record := range h.tickets.OpenTickets() {
		if kind != "" && record.Kind != kind {
			continue
		}
		items = append(items, dto.NewTicketResponse(record))
	}
	return c.JSON(dto.TicketListResponse{Data: items, NextNumber: h.tickets.NextNumber()})
}

// GetTicket GET /admin/tickets/:channel.
func (h *AdminHandler) GetTicket(c *fiber.Ctx) error {
	channelID := c.Params("channel")
	record, ok := h.tickets.Ticket(channelID)
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"channel_id": channelID})
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(record)})
}

// GetNews GET /admin/news.
func (h *AdminHandler) GetNews(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.NewNewsResponse(h.tickets.News())})
}

// UpdateNews PUT /admin/news.
func (h *AdminHandler) UpdateNews(c *fiber.Ctx) error {
	var req dto.UpdateNewsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actor := ""
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actor = principal.Subject
	}
	news, err := h.tickets.UpdateNews(c.UserContext(), req.GuildID, actor, req.Title, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNewsResponse(news)})
}

// Metrics GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
