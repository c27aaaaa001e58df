package platform

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/stksupply/ticket-bot/internal/domain"
)

const memberPageSize = 1000

// allowedTicketPerms is what every allowed grant receives on a ticket channel.
const allowedTicketPerms = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionEmbedLinks

// Discord implements Platform over a discordgo session.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord wraps an opened session.
func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) SelfID() string {
	if d.session.State == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

func (d *Discord) CreateCategory(ctx context.Context, guildID, name string) (string, error) {
	ch, err := d.session.GuildChannelCreate(guildID, name, discordgo.ChannelTypeGuildCategory, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create category %q: %w", name, err)
	}
	return ch.ID, nil
}

func (d *Discord) CreateTextChannel(ctx context.Context, spec ChannelSpec) (string, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(spec.Grants))
	for _, grant := range spec.Grants {
		ow := &discordgo.PermissionOverwrite{ID: grant.ID, Type: discordgo.PermissionOverwriteTypeRole}
		if grant.Target == GrantMember {
			ow.Type = discordgo.PermissionOverwriteTypeMember
		}
		if grant.Allow {
			ow.Allow = allowedTicketPerms
		} else {
			ow.Deny = discordgo.PermissionViewChannel
		}
		overwrites = append(overwrites, ow)
	}

	ch, err := d.session.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create channel %q: %w", spec.Name, err)
	}
	return ch.ID, nil
}

func (d *Discord) SendMessage(ctx context.Context, channelID string, msg Message) error {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Components: Components(msg.Rows),
	}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{EmbedOf(msg.Embed)}
	}
	if _, err := d.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return nil
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := d.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete channel %s: %w", channelID, err)
	}
	return nil
}

func (d *Discord) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add role %s to %s: %w", roleID, userID, err)
	}
	return nil
}

func (d *Discord) Channels(ctx context.Context, guildID string) ([]domain.Channel, error) {
	channels, err := d.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	out := make([]domain.Channel, 0, len(channels))
	for _, ch := range channels {
		converted := domain.Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID, Position: ch.Position}
		switch ch.Type {
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
			converted.Type = domain.ChannelTypeText
		case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
			converted.Type = domain.ChannelTypeVoice
		case discordgo.ChannelTypeGuildCategory:
			converted.Type = domain.ChannelTypeGroup
		default:
			continue
		}
		out = append(out, converted)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (d *Discord) Members(ctx context.Context, guildID string) ([]domain.Member, error) {
	roles, err := d.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	byID := make(map[string]*discordgo.Role, len(roles))
	var everyone int64
	for _, role := range roles {
		byID[role.ID] = role
		if role.ID == guildID {
			everyone = role.Permissions
		}
	}

	var out []domain.Member
	after := ""
	for {
		page, err := d.session.GuildMembers(guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		for _, m := range page {
			out = append(out, memberOf(m, byID, everyone))
		}
		if len(page) < memberPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func memberOf(m *discordgo.Member, roles map[string]*discordgo.Role, everyone int64) domain.Member {
	perms := everyone
	names := make([]string, 0, len(m.Roles))
	for _, id := range m.Roles {
		if role, ok := roles[id]; ok {
			perms |= role.Permissions
			names = append(names, role.Name)
		}
	}
	member := domain.Member{
		RoleIDs:     append([]string(nil), m.Roles...),
		RoleNames:   names,
		JoinedAt:    m.JoinedAt,
		Permissions: PermissionsOf(perms),
	}
	if m.User != nil {
		member.ID = m.User.ID
		member.Username = m.User.Username
		member.Bot = m.User.Bot
	}
	return member
}

// PermissionsOf maps Discord permission bits onto domain flags.
func PermissionsOf(bits int64) domain.Permission {
	mapping := []struct {
		bit  int64
		flag domain.Permission
	}{
		{discordgo.PermissionAdministrator, domain.PermAdministrator},
		{discordgo.PermissionManageServer, domain.PermManageGuild},
		{discordgo.PermissionManageChannels, domain.PermManageChannels},
		{discordgo.PermissionManageRoles, domain.PermManageRoles},
		{discordgo.PermissionKickMembers, domain.PermKickMembers},
		{discordgo.PermissionBanMembers, domain.PermBanMembers},
		{discordgo.PermissionManageMessages, domain.PermManageMessages},
		{discordgo.PermissionModerateMembers, domain.PermModerateMembers},
	}
	var out domain.Permission
	for _, m := range mapping {
		if bits&m.bit != 0 {
			out |= m.flag
		}
	}
	return out
}

// EmbedOf converts an Embed.
func EmbedOf(e *Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if !e.Timestamp.IsZero() {
		embed.Timestamp = e.Timestamp.Format(time.RFC3339)
	}
	if e.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
	}
	if e.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: e.Image}
	}
	if e.AuthorName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: e.AuthorName, IconURL: e.AuthorIcon}
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return embed
}

// Components converts rows into action rows.
func Components(rows []Row) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		var items []discordgo.MessageComponent
		if row.Select != nil {
			items = append(items, selectMenuOf(row.Select))
		}
		for _, b := range row.Buttons {
			items = append(items, discordgo.Button{
				Label:    b.Label,
				CustomID: b.CustomID,
				Style:    buttonStyleOf(b.Style),
			})
		}
		if len(items) > 0 {
			out = append(out, discordgo.ActionsRow{Components: items})
		}
	}
	return out
}

func selectMenuOf(s *SelectMenu) discordgo.SelectMenu {
	minValues := s.MinValues
	options := make([]discordgo.SelectMenuOption, 0, len(s.Options))
	for _, o := range s.Options {
		options = append(options, discordgo.SelectMenuOption{Label: o.Label, Value: o.Value, Description: o.Description})
	}
	return discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    s.CustomID,
		Placeholder: s.Placeholder,
		MinValues:   &minValues,
		MaxValues:   s.MaxValues,
		Options:     options,
	}
}

func buttonStyleOf(s ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case ButtonSecondary:
		return discordgo.SecondaryButton
	case ButtonSuccess:
		return discordgo.SuccessButton
	case ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}
