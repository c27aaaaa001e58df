// Package classifier maps platform channel and member names onto semantic
// roles. Everything here is a pure function of its input.
package classifier

import (
	"strings"
	"unicode"

	"github.com/stksupply/ticket-bot/internal/domain"
)

// minSubstringKeyword keeps short keywords such as "logs" and "news" from
// matching inside unrelated words ("blogs", "newsletter").
const minSubstringKeyword = 5

type categoryRule struct {
	category domain.ChannelCategory
	kind     domain.ChannelType
	keywords []string
}

// Rules are evaluated in this order; a channel may satisfy several.
var channelRules = []categoryRule{
	{domain.CategorySupport, domain.ChannelTypeText, []string{"support", "ticket", "tickets", "helpdesk", "help"}},
	{domain.CategoryRecruitment, domain.ChannelTypeText, []string{"recruitment", "recruit", "hiring", "apply", "applications"}},
	{domain.CategoryTerms, domain.ChannelTypeText, []string{"terms-of-service", "terms", "tos"}},
	{domain.CategoryRules, domain.ChannelTypeText, []string{"rules", "rule", "guidelines"}},
	{domain.CategoryNews, domain.ChannelTypeText, []string{"news", "announcements", "announcement", "updates"}},
	{domain.CategoryWelcome, domain.ChannelTypeText, []string{"welcome", "greetings", "arrivals"}},
	{domain.CategoryShop, domain.ChannelTypeText, []string{"shop", "store", "market", "products", "buy"}},
	{domain.CategoryChat, domain.ChannelTypeText, []string{"general", "chat", "lounge", "talk"}},
	{domain.CategoryBotCommands, domain.ChannelTypeText, []string{"bot-commands", "commands", "cmds", "bots", "bot"}},
	{domain.CategoryLogs, domain.ChannelTypeText, []string{"mod-logs", "logs", "log", "audit"}},
	{domain.CategoryVoice, domain.ChannelTypeVoice, []string{"voice", "general", "lounge", "vc", "talk"}},
	{domain.CategoryMeme, domain.ChannelTypeText, []string{"memes", "meme", "funny"}},
	{domain.CategoryMedia, domain.ChannelTypeText, []string{"media", "clips", "images", "pics", "screenshots", "art"}},
}

// Categories lists every category ClassifyChannels can detect.
func Categories() []domain.ChannelCategory {
	out := make([]domain.ChannelCategory, 0, len(channelRules))
	for _, rule := range channelRules {
		out = append(out, rule.category)
	}
	return out
}

// ClassifyChannels picks, for each category, the first channel whose
// normalized name matches one of the category keywords. Support falls back
// to channel groups when no text channel matches.
func ClassifyChannels(channels []domain.Channel) domain.DetectedChannels {
	detected := domain.DetectedChannels{}
	for _, rule := range channelRules {
		for _, ch := range channels {
			if ch.Type != rule.kind {
				continue
			}
			if matchesAny(Normalize(ch.Name), rule.keywords) {
				detected[rule.category] = ch.ID
				break
			}
		}
	}
	if _, ok := detected[domain.CategorySupport]; !ok {
		if id, ok := supportFromGroups(channels); ok {
			detected[domain.CategorySupport] = id
		}
	}
	return detected
}

// supportFromGroups returns the first text channel inside a support-looking
// group, or the group itself when it holds no text channel.
func supportFromGroups(channels []domain.Channel) (string, bool) {
	for _, group := range channels {
		if group.Type != domain.ChannelTypeGroup || !matchesAny(Normalize(group.Name), channelRules[0].keywords) {
			continue
		}
		for _, ch := range channels {
			if ch.Type == domain.ChannelTypeText && ch.ParentID == group.ID {
				return ch.ID, true
			}
		}
		return group.ID, true
	}
	return "", false
}

// Normalize lower-cases name and collapses every run of non-alphanumeric
// characters (emoji, separators, punctuation) into a single dash.
func Normalize(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// matchesAny reports whether a normalized name contains a keyword as the
// whole name, a dash-delimited prefix, suffix or inner segment, or, for
// keywords of at least minSubstringKeyword characters, as a plain substring.
func matchesAny(name string, keywords []string) bool {
	if name == "" {
		return false
	}
	for _, kw := range keywords {
		switch {
		case name == kw,
			strings.HasPrefix(name, kw+"-"),
			strings.HasSuffix(name, "-"+kw),
			strings.Contains(name, "-"+kw+"-"):
			return true
		case len(kw) >= minSubstringKeyword && strings.Contains(strings.ReplaceAll(name, "-", ""), strings.ReplaceAll(kw, "-", "")):
			return true
		}
	}
	return false
}
