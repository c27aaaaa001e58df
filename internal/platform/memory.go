package platform

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"

	"github.com/stksupply/ticket-bot/internal/domain"
)

// MemoryChannel is a channel created on a Memory platform.
type MemoryChannel struct {
	domain.Channel
	GuildID string
	Topic   string
	Grants  []Grant
	Deleted bool
}

// RoleGrant records an AddRole call.
type RoleGrant struct {
	GuildID string
	UserID  string
	RoleID  string
}

// Memory is an in-process Platform. It backs the tests and offline runs;
// IDs come from a snowflake node so they look like real platform IDs.
type Memory struct {
	mu       sync.Mutex
	node     *snowflake.Node
	selfID   string
	channels map[string]*MemoryChannel
	order    []string
	members  map[string][]domain.Member
	messages map[string][]Message
	roles    []RoleGrant
	failures map[string]error
}

// NewMemory creates an empty platform.
func NewMemory() *Memory {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(fmt.Sprintf("snowflake node: %v", err))
	}
	m := &Memory{
		node:     node,
		channels: map[string]*MemoryChannel{},
		members:  map[string][]domain.Member{},
		messages: map[string][]Message{},
		failures: map[string]error{},
	}
	m.selfID = m.NewID()
	return m
}

// NewID returns a fresh snowflake ID.
func (m *Memory) NewID() string {
	return m.node.Generate().String()
}

// FailNext makes the next call of operation (e.g. "CreateTextChannel")
// return err.
func (m *Memory) FailNext(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[operation] = err
}

func (m *Memory) takeFailure(operation string) error {
	err := m.failures[operation]
	delete(m.failures, operation)
	return err
}

// AddChannel seeds an existing channel and returns its ID.
func (m *Memory) AddChannel(guildID string, ch domain.Channel) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch.ID == "" {
		ch.ID = m.node.Generate().String()
	}
	m.channels[ch.ID] = &MemoryChannel{Channel: ch, GuildID: guildID}
	m.order = append(m.order, ch.ID)
	return ch.ID
}

// AddMember seeds a guild member.
func (m *Memory) AddMember(guildID string, member domain.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[guildID] = append(m.members[guildID], member)
}

func (m *Memory) SelfID() string {
	return m.selfID
}

func (m *Memory) CreateCategory(ctx context.Context, guildID, name string) (string, error) {
	m.mu.Lock()
	err := m.takeFailure("CreateCategory")
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	return m.AddChannel(guildID, domain.Channel{Name: name, Type: domain.ChannelTypeGroup}), nil
}

func (m *Memory) CreateTextChannel(ctx context.Context, spec ChannelSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("CreateTextChannel"); err != nil {
		return "", err
	}
	id := m.node.Generate().String()
	m.channels[id] = &MemoryChannel{
		Channel: domain.Channel{ID: id, Name: spec.Name, Type: domain.ChannelTypeText, ParentID: spec.ParentID},
		GuildID: spec.GuildID,
		Topic:   spec.Topic,
		Grants:  append([]Grant(nil), spec.Grants...),
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) SendMessage(ctx context.Context, channelID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("SendMessage"); err != nil {
		return err
	}
	ch, ok := m.channels[channelID]
	if !ok || ch.Deleted {
		return fmt.Errorf("unknown channel %s", channelID)
	}
	m.messages[channelID] = append(m.messages[channelID], msg)
	return nil
}

func (m *Memory) DeleteChannel(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("DeleteChannel"); err != nil {
		return err
	}
	ch, ok := m.channels[channelID]
	if !ok || ch.Deleted {
		return fmt.Errorf("unknown channel %s", channelID)
	}
	ch.Deleted = true
	return nil
}

func (m *Memory) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("AddRole"); err != nil {
		return err
	}
	m.roles = append(m.roles, RoleGrant{GuildID: guildID, UserID: userID, RoleID: roleID})
	return nil
}

func (m *Memory) Channels(ctx context.Context, guildID string) ([]domain.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Channel
	for _, id := range m.order {
		ch := m.channels[id]
		if ch.GuildID == guildID && !ch.Deleted {
			out = append(out, ch.Channel)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *Memory) Members(ctx context.Context, guildID string) ([]domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Member(nil), m.members[guildID]...), nil
}

// Channel returns a created or seeded channel.
func (m *Memory) Channel(id string) (MemoryChannel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return MemoryChannel{}, false
	}
	return *ch, true
}

// ChannelByName finds a live channel by exact name.
func (m *Memory) ChannelByName(guildID, name string) (MemoryChannel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		ch := m.channels[id]
		if ch.GuildID == guildID && !ch.Deleted && strings.EqualFold(ch.Name, name) {
			return *ch, true
		}
	}
	return MemoryChannel{}, false
}

// Messages returns everything sent to channelID.
func (m *Memory) Messages(channelID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages[channelID]...)
}

// RoleGrants returns every AddRole call.
func (m *Memory) RoleGrants() []RoleGrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RoleGrant(nil), m.roles...)
}
