package service

import (
	"sync"

	"github.com/stksupply/ticket-bot/internal/domain"
)

// ChannelDirectory remembers the detected channels of every connected guild.
// It is rebuilt whenever a guild becomes available and never persisted.
type ChannelDirectory struct {
	mu      sync.RWMutex
	byGuild map[string]domain.DetectedChannels
}

// NewChannelDirectory creates an empty directory.
func NewChannelDirectory() *ChannelDirectory {
	return &ChannelDirectory{byGuild: map[string]domain.DetectedChannels{}}
}

// Set replaces the detected channels of guildID.
func (d *ChannelDirectory) Set(guildID string, detected domain.DetectedChannels) {
	copied := make(domain.DetectedChannels, len(detected))
	for k, v := range detected {
		copied[k] = v
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byGuild[guildID] = copied
}

// Forget drops a guild the bot left.
func (d *ChannelDirectory) Forget(guildID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byGuild, guildID)
}

// Lookup returns the channel detected for category in guildID.
func (d *ChannelDirectory) Lookup(guildID string, category domain.ChannelCategory) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byGuild[guildID][category]
	return id, ok
}

// Guilds lists every known guild.
func (d *ChannelDirectory) Guilds() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.byGuild))
	for id := range d.byGuild {
		out = append(out, id)
	}
	return out
}
