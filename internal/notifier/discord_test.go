package notifier

import (
	"strings"
	"testing"

	"github.com/coachlab/coach-api/internal/config"
	"github.com/coachlab/coach-api/internal/gamification"
	"github.com/coachlab/coach-api/internal/models"
)

func TestFormatAchievements(t *testing.T) {
	user := models.User{DiscordID: "99", Username: "runner"}
	res := gamification.Result{
		StreakDays:  7,
		PointsAdded: 80,
		Unlocked:    []gamification.AchievementCode{gamification.AchievementStreak7},
	}

	msg := FormatAchievements(user, res)
	for _, want := range []string{"runner", "<@99>", "7 day(s)", "One Week Strong (+70)", "80"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestNotifyAchievements(t *testing.T) {
	var n *DiscordNotifier
	if err := n.NotifyAchievements(models.User{}, gamification.Result{}); err == nil {
		t.Error("expected error for nil notifier")
	}

	if _, err := NewDiscordNotifier(&config.Config{}); err == nil {
		t.Error("expected error without bot token")
	}
	n, err := NewDiscordNotifier(&config.Config{DiscordBotToken: "token", DiscordNotificationsChannelID: "1"})
	if err != nil {
		t.Fatalf("NewDiscordNotifier returned error: %v", err)
	}
	// Nothing unlocked means nothing is sent.
	if err := n.NotifyAchievements(models.User{}, gamification.Result{StreakDays: 2}); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}
