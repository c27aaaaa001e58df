package domain

import "time"

// ChannelType is the shape of a platform channel.
type ChannelType int

const (
	ChannelTypeText ChannelType = iota
	ChannelTypeVoice
	ChannelTypeGroup
)

// Channel is the platform-neutral view of a guild channel.
type Channel struct {
	ID       string
	Name     string
	Type     ChannelType
	ParentID string
	Position int
}

// ChannelCategory is a semantic role detected from channel names.
type ChannelCategory string

const (
	CategorySupport     ChannelCategory = "support"
	CategoryRecruitment ChannelCategory = "recruitment"
	CategoryTerms       ChannelCategory = "terms"
	CategoryRules       ChannelCategory = "rules"
	CategoryNews        ChannelCategory = "news"
	CategoryWelcome     ChannelCategory = "welcome"
	CategoryShop        ChannelCategory = "shop"
	CategoryChat        ChannelCategory = "chat"
	CategoryBotCommands ChannelCategory = "bot-commands"
	CategoryLogs        ChannelCategory = "logs"
	CategoryVoice       ChannelCategory = "voice"
	CategoryMeme        ChannelCategory = "meme"
	CategoryMedia       ChannelCategory = "media"
)

// DetectedChannels maps each detected category to a channel ID.
type DetectedChannels map[ChannelCategory]string

// Permission is a bitset of the guild permissions the classifier cares about.
type Permission uint32

const (
	PermAdministrator Permission = 1 << iota
	PermManageGuild
	PermManageChannels
	PermManageRoles
	PermKickMembers
	PermBanMembers
	PermManageMessages
	PermModerateMembers
)

// Has reports whether every bit of p2 is set.
func (p Permission) Has(p2 Permission) bool {
	return p&p2 == p2
}

// Member is the platform-neutral view of a guild member.
type Member struct {
	ID          string
	Username    string
	Bot         bool
	Permissions Permission
	RoleIDs     []string
	RoleNames   []string
	JoinedAt    time.Time
}

// MemberBucket names one MemberReport group.
type MemberBucket string

const (
	BucketBots           MemberBucket = "bots"
	BucketAdmins         MemberBucket = "admins"
	BucketModerators     MemberBucket = "moderators"
	BucketStaff          MemberBucket = "staff"
	BucketActive         MemberBucket = "active"
	BucketRecentlyJoined MemberBucket = "recently_joined"
	BucketUnclassified   MemberBucket = "unclassified"
)

// MemberBuckets lists buckets in classification priority order.
var MemberBuckets = []MemberBucket{
	BucketBots,
	BucketAdmins,
	BucketModerators,
	BucketStaff,
	BucketActive,
	BucketRecentlyJoined,
	BucketUnclassified,
}

// MemberReport groups members into mutually exclusive buckets.
type MemberReport struct {
	Buckets map[MemberBucket][]Member
}

// Count returns the size of bucket b.
func (r MemberReport) Count(b MemberBucket) int {
	return len(r.Buckets[b])
}

// Total returns the number of classified members.
func (r MemberReport) Total() int {
	total := 0
	for _, members := range r.Buckets {
		total += len(members)
	}
	return total
}
