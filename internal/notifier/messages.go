package notifier

import (
	"fmt"

	"github.com/mauv0809/legend-tracker/internal/clash"
)

// Texts shared by every provider.

const (
	SummaryTitle     = "📊 Daily Trophy Summary"
	FirstSummaryNote = "⚠️ This is the first summary for this player. Full trophy tracking will begin at the next daily reset."
)

func TrackingStartedText(player clash.Player, trophies int) string {
	return fmt.Sprintf("🏆 Starting Legend League trophy tracking for %s at %d trophies", player.Name, trophies)
}

func TrackingFailedText(tag, reason string) string {
	return fmt.Sprintf("❌ Failed to initialize tracking for %s: %s. Please try again later.", clash.DisplayTag(tag), reason)
}

func NotEligibleText(player clash.Player) string {
	return fmt.Sprintf("❌ Cannot track %s - Player must be in Legend League! Current league: %s", player.Name, player.LeagueName())
}

func EligibilityLostText(player clash.Player) string {
	return fmt.Sprintf("❌ Stopping tracker - %s is no longer in Legend League!", player.Name)
}

func TrackingStoppedText(playerName string) string {
	return fmt.Sprintf("🔴 Trophy tracking stopped for %s", playerName)
}

func SummaryIneligibleText(player clash.Player) string {
	return fmt.Sprintf("❌ Daily Summary: %s is no longer in Legend League!", player.Name)
}

// SummaryChangeText renders the signed daily change with a direction marker.
func SummaryChangeText(delta int) string {
	marker := "🔺"
	if delta < 0 {
		marker = "🔻"
	}
	return fmt.Sprintf("%s %+d", marker, delta)
}

func TrophiesText(n int) string {
	return fmt.Sprintf("🏆 %d", n)
}
