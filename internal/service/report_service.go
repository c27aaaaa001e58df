package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/classifier"
	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/platform"
)

// ReportService classifies guild members on demand and on a cron schedule.
type ReportService struct {
	platform  platform.Platform
	directory *ChannelDirectory
	logger    *zap.Logger
	now       func() time.Time
	cron      *cron.Cron
}

// NewReportService creates the service. now may be nil.
func NewReportService(chat platform.Platform, directory *ChannelDirectory, logger *zap.Logger, now func() time.Time) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{platform: chat, directory: directory, logger: logger, now: now}
}

// Report classifies the members of guildID.
func (r *ReportService) Report(ctx context.Context, guildID string) (domain.MemberReport, error) {
	members, err := r.platform.Members(ctx, guildID)
	if err != nil {
		return domain.MemberReport{}, fmt.Errorf("list members of %s: %w", guildID, err)
	}
	return classifier.ClassifyMembers(members, r.now()), nil
}

// RunOnce reports on every known guild and logs the bucket counts.
func (r *ReportService) RunOnce(ctx context.Context) {
	guilds := r.directory.Guilds()
	sort.Strings(guilds)
	for _, guildID := range guilds {
		report, err := r.Report(ctx, guildID)
		if err != nil {
			r.logger.Warn("community report failed", zap.String("guild_id", guildID), zap.Error(err))
			continue
		}
		r.logger.Info("community report",
			zap.String("guild_id", guildID),
			zap.Int("total", report.Total()),
			zap.String("summary", classifier.Summary(report)))
	}
}

// Start schedules RunOnce on spec, a robfig/cron expression such as
// "@every 6h".
func (r *ReportService) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		r.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule community report %q: %w", spec, err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("community report scheduled", zap.String("schedule", spec))
	return nil
}

// Stop halts the schedule and waits for a running report.
func (r *ReportService) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// ReportMessage renders a report for /report.
func ReportMessage(guildName string, report domain.MemberReport) platform.Message {
	fields := make([]platform.EmbedField, 0, len(domain.MemberBuckets))
	for _, bucket := range domain.MemberBuckets {
		fields = append(fields, platform.EmbedField{
			Name:   string(bucket),
			Value:  strconv.Itoa(report.Count(bucket)),
			Inline: true,
		})
	}
	title := "📊 Community Report"
	if guildName != "" {
		title += " · " + guildName
	}
	return platform.Message{Embed: &platform.Embed{
		Title:       title,
		Description: strconv.Itoa(report.Total()) + " members classified",
		Color:       colorSupport,
		Fields:      fields,
	}}
}
