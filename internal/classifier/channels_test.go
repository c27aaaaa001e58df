package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stksupply/ticket-bot/internal/domain"
)

func text(id, name string) domain.Channel {
	return domain.Channel{ID: id, Name: name, Type: domain.ChannelTypeText}
}

func TestClassifyChannelsScenario(t *testing.T) {
	detected := ClassifyChannels([]domain.Channel{
		text("1", "#staff-support"),
		text("2", "#rules-and-info"),
		text("3", "#daily-news"),
	})

	assert.Equal(t, domain.DetectedChannels{
		domain.CategorySupport: "1",
		domain.CategoryRules:   "2",
		domain.CategoryNews:    "3",
	}, detected)
}

func TestClassifyChannelsFirstMatchWins(t *testing.T) {
	detected := ClassifyChannels([]domain.Channel{
		text("10", "📢・announcements"),
		text("11", "news"),
	})
	assert.Equal(t, "10", detected[domain.CategoryNews])
}

func TestClassifyChannelsNoMutualExclusion(t *testing.T) {
	detected := ClassifyChannels([]domain.Channel{text("20", "shop-support")})

	assert.Equal(t, "20", detected[domain.CategorySupport])
	assert.Equal(t, "20", detected[domain.CategoryShop])
}

func TestClassifyChannelsHonoursChannelType(t *testing.T) {
	detected := ClassifyChannels([]domain.Channel{
		{ID: "30", Name: "General", Type: domain.ChannelTypeVoice},
		text("31", "general"),
	})

	assert.Equal(t, "30", detected[domain.CategoryVoice])
	assert.Equal(t, "31", detected[domain.CategoryChat])
}

func TestClassifyChannelsSupportFallsBackToGroups(t *testing.T) {
	channels := []domain.Channel{
		{ID: "40", Name: "🎫 Help Desk", Type: domain.ChannelTypeGroup},
		{ID: "41", Name: "open-here", Type: domain.ChannelTypeText, ParentID: "40"},
	}
	assert.Equal(t, "41", ClassifyChannels(channels)[domain.CategorySupport])

	empty := []domain.Channel{{ID: "50", Name: "SUPPORT", Type: domain.ChannelTypeGroup}}
	assert.Equal(t, "50", ClassifyChannels(empty)[domain.CategorySupport])
}

func TestShortKeywordsNeedWholeSegments(t *testing.T) {
	detected := ClassifyChannels([]domain.Channel{text("60", "photos")})

	_, terms := detected[domain.CategoryTerms]
	assert.False(t, terms, "tos inside photos must not match")
}

func TestShortKeywordsDoNotMatchInsideWords(t *testing.T) {
	detected := ClassifyChannels([]domain.Channel{
		text("70", "blogs"),
		text("71", "newsletter-art"),
		text("72", "supportdesk"),
	})

	_, logs := detected[domain.CategoryLogs]
	assert.False(t, logs)
	_, news := detected[domain.CategoryNews]
	assert.False(t, news)
	assert.Equal(t, "71", detected[domain.CategoryMedia])
	assert.Equal(t, "72", detected[domain.CategorySupport])
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "bot-commands", Normalize("🤖┃Bot_Commands"))
	assert.Equal(t, "rules-and-info", Normalize("#rules-and-info"))
	assert.Equal(t, "", Normalize("✨✨"))
}

func TestCategories(t *testing.T) {
	assert.Len(t, Categories(), 13)
}
