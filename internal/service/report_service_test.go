package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stksupply/ticket-bot/internal/domain"
	"github.com/stksupply/ticket-bot/internal/platform"
)

func TestReportClassifiesMembers(t *testing.T) {
	chat := platform.NewMemory()
	chat.AddMember(testGuild, domain.Member{ID: "1", Bot: true})
	chat.AddMember(testGuild, domain.Member{ID: "2", Permissions: domain.PermAdministrator, RoleNames: []string{"Staff"}})
	chat.AddMember(testGuild, domain.Member{ID: "3", JoinedAt: testNow.Add(-48 * time.Hour)})

	reports := NewReportService(chat, NewChannelDirectory(), zap.NewNop(), func() time.Time { return testNow })
	report, err := reports.Report(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 1, report.Count(domain.BucketAdmins))
	assert.Equal(t, 0, report.Count(domain.BucketStaff))
	assert.Equal(t, 1, report.Count(domain.BucketRecentlyJoined))

	msg := ReportMessage("STK", report)
	assert.Equal(t, "📊 Community Report · STK", msg.Embed.Title)
	assert.Len(t, msg.Embed.Fields, len(domain.MemberBuckets))
}

type failingMembers struct {
	*platform.Memory
}

func (failingMembers) Members(context.Context, string) ([]domain.Member, error) {
	return nil, errors.New("missing intent")
}

func TestRunOnceLogsEveryGuild(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	chat := platform.NewMemory()
	chat.AddMember("g1", domain.Member{ID: "1", Bot: true})

	directory := NewChannelDirectory()
	directory.Set("g1", nil)
	directory.Set("g2", nil)

	reports := NewReportService(chat, directory, zap.New(core), nil)
	reports.RunOnce(context.Background())
	entries := logs.FilterMessage("community report").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "g1", entries[0].ContextMap()["guild_id"])

	failing := NewReportService(failingMembers{chat}, directory, zap.New(core), nil)
	failing.RunOnce(context.Background())
	assert.Equal(t, 2, logs.FilterMessage("community report failed").Len())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	reports := NewReportService(platform.NewMemory(), NewChannelDirectory(), zap.NewNop(), nil)
	assert.Error(t, reports.Start("every tuesday"))
	reports.Stop()

	require.NoError(t, reports.Start("@every 1h"))
	reports.Stop()
}
