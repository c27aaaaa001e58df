package classifier

import (
	"strconv"
	"strings"
	"time"

	"github.com/stksupply/ticket-bot/internal/domain"
)

const (
	activeRoleThreshold = 3
	recentJoinWindow    = 7 * 24 * time.Hour
)

const moderatorPerms = domain.PermKickMembers | domain.PermBanMembers |
	domain.PermManageMessages | domain.PermModerateMembers

var staffRoleKeywords = []string{"staff", "support", "helper", "moderator", "mod", "admin", "owner"}

// ClassifyMembers places every member into exactly one bucket, taking the
// first that applies in domain.MemberBuckets order.
func ClassifyMembers(members []domain.Member, now time.Time) domain.MemberReport {
	report := domain.MemberReport{Buckets: make(map[domain.MemberBucket][]domain.Member, len(domain.MemberBuckets))}
	for _, bucket := range domain.MemberBuckets {
		report.Buckets[bucket] = nil
	}
	for _, m := range members {
		bucket := BucketOf(m, now)
		report.Buckets[bucket] = append(report.Buckets[bucket], m)
	}
	return report
}

// BucketOf returns the single bucket m belongs to.
func BucketOf(m domain.Member, now time.Time) domain.MemberBucket {
	switch {
	case m.Bot:
		return domain.BucketBots
	case m.Permissions.Has(domain.PermAdministrator):
		return domain.BucketAdmins
	case m.Permissions&moderatorPerms != 0:
		return domain.BucketModerators
	case hasStaffRoleName(m.RoleNames):
		return domain.BucketStaff
	case len(m.RoleIDs) > activeRoleThreshold || len(m.RoleNames) > activeRoleThreshold:
		return domain.BucketActive
	case !m.JoinedAt.IsZero() && now.Sub(m.JoinedAt) < recentJoinWindow:
		return domain.BucketRecentlyJoined
	default:
		return domain.BucketUnclassified
	}
}

func hasStaffRoleName(names []string) bool {
	for _, name := range names {
		if matchesAny(Normalize(name), staffRoleKeywords) {
			return true
		}
	}
	return false
}

// IsStaff reports whether m can run staff-only commands: administrators,
// members with Manage Server (the default permission of the staff slash
// commands), or holders of one of roleIDs. Moderation permissions alone do
// not count.
func IsStaff(m domain.Member, roleIDs []string) bool {
	if m.Permissions.Has(domain.PermAdministrator) || m.Permissions.Has(domain.PermManageGuild) {
		return true
	}
	for _, held := range m.RoleIDs {
		for _, want := range roleIDs {
			if held == want {
				return true
			}
		}
	}
	return false
}

// Summary renders bucket counts as "bots=2 admins=1 ...".
func Summary(report domain.MemberReport) string {
	parts := make([]string, 0, len(domain.MemberBuckets))
	for _, bucket := range domain.MemberBuckets {
		parts = append(parts, string(bucket)+"="+strconv.Itoa(report.Count(bucket)))
	}
	return strings.Join(parts, " ")
}
