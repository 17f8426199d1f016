package notifier

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/coachlab/coach-api/internal/config"
	"github.com/coachlab/coach-api/internal/gamification"
	"github.com/coachlab/coach-api/internal/models"
)

// Notifier posts to the coaching staff channel. It is an audit feed for
// coaches, not a delivery channel for users.
type Notifier interface {
	NotifyAchievements(user models.User, res gamification.Result) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(cfg *config.Config) (*DiscordNotifier, error) {
	if cfg.DiscordBotToken == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	if cfg.DiscordNotificationsChannelID == "" {
		return nil, fmt.Errorf("discord channel ID is empty")
	}
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: cfg.DiscordNotificationsChannelID}, nil
}

func (n *DiscordNotifier) NotifyAchievements(user models.User, res gamification.Result) error {
	if n == nil || n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if len(res.Unlocked) == 0 {
		return nil
	}

	_, err := n.session.ChannelMessageSend(n.channelID, FormatAchievements(user, res))
	return err
}

func FormatAchievements(user models.User, res gamification.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 **Achievement Unlocked**\n**User:** %s (<@%s>)\n**Streak:** %d day(s)\n",
		user.Username, user.DiscordID, res.StreakDays)
	for _, code := range res.Unlocked {
		def, ok := code.Definition()
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "• %s (+%d)\n", def.Name, def.Points)
	}
	fmt.Fprintf(&b, "**Points this check-in:** %d", res.PointsAdded)
	return b.String()
}
