package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stksupply/ticket-bot/internal/domain"
)

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func TestBucketPriority(t *testing.T) {
	old := now.Add(-90 * 24 * time.Hour)
	cases := []struct {
		name   string
		member domain.Member
		want   domain.MemberBucket
	}{
		{"bot beats admin", domain.Member{Bot: true, Permissions: domain.PermAdministrator}, domain.BucketBots},
		{"admin with staff role", domain.Member{Permissions: domain.PermAdministrator, RoleNames: []string{"Staff"}}, domain.BucketAdmins},
		{"moderator by kick", domain.Member{Permissions: domain.PermKickMembers, RoleNames: []string{"Staff"}}, domain.BucketModerators},
		{"staff by role name", domain.Member{RoleNames: []string{"Support Team"}, JoinedAt: now}, domain.BucketStaff},
		{"active by role count", domain.Member{RoleIDs: []string{"1", "2", "3", "4"}, JoinedAt: now}, domain.BucketActive},
		{"three roles is not active", domain.Member{RoleIDs: []string{"1", "2", "3"}, JoinedAt: old}, domain.BucketUnclassified},
		{"recently joined", domain.Member{JoinedAt: now.Add(-6 * 24 * time.Hour)}, domain.BucketRecentlyJoined},
		{"joined a week ago", domain.Member{JoinedAt: now.Add(-7 * 24 * time.Hour)}, domain.BucketUnclassified},
		{"nothing known", domain.Member{}, domain.BucketUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BucketOf(tc.member, now))
		})
	}
}

func TestClassifyMembersIsMutuallyExclusive(t *testing.T) {
	members := []domain.Member{
		{ID: "a", Permissions: domain.PermAdministrator, RoleNames: []string{"staff"}},
		{ID: "b", Bot: true},
		{ID: "c", JoinedAt: now.Add(-time.Hour)},
	}

	report := ClassifyMembers(members, now)

	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 1, report.Count(domain.BucketAdmins))
	assert.Equal(t, 0, report.Count(domain.BucketStaff))
	assert.Equal(t, 1, report.Count(domain.BucketBots))
	assert.Equal(t, 1, report.Count(domain.BucketRecentlyJoined))
	assert.Equal(t, "bots=1 admins=1 moderators=0 staff=0 active=0 recently_joined=1 unclassified=0", Summary(report))
}

func TestIsStaff(t *testing.T) {
	assert.True(t, IsStaff(domain.Member{RoleIDs: []string{"99"}}, []string{"99"}))
	assert.True(t, IsStaff(domain.Member{Permissions: domain.PermAdministrator}, nil))
	assert.False(t, IsStaff(domain.Member{RoleIDs: []string{"1"}}, []string{"99"}))
	assert.True(t, IsStaff(domain.Member{Permissions: domain.PermManageGuild}, nil))
	assert.False(t, IsStaff(domain.Member{Permissions: domain.PermKickMembers | domain.PermBanMembers}, nil))
}
