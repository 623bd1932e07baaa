package bot

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/notifier"
	"github.com/mauv0809/legend-tracker/internal/summary"
	"github.com/mauv0809/legend-tracker/internal/tracking"
)

const (
	noLinkText       = "You have no linked account. Use `/player link` first or pass a tag."
	genericErrorText = "Something went wrong. Please try again later."
	apiErrorText     = "The Clash of Clans API is unavailable right now. Please try again later."
)

func playerNotFoundText(tag string) string {
	return fmt.Sprintf("Player %s was not found. Check the tag and try again.", clash.DisplayTag(tag))
}

func linkedText(player clash.Player) string {
	return fmt.Sprintf("✅ Linked your account to **%s** (%s).", player.Name, clash.DisplayTag(player.Tag))
}

func tooManyTrackedText(limit int) string {
	return fmt.Sprintf("You can track at most %d players. Use `/player untrack` first.", limit)
}

func alreadyTrackingText(tag string) string {
	return fmt.Sprintf("You are already tracking %s.", clash.DisplayTag(tag))
}

func notTrackingText(tag string) string {
	return fmt.Sprintf("%s is not being tracked.", clash.DisplayTag(tag))
}

func stillStartingText(tag string) string {
	return fmt.Sprintf("Tracking for %s is still starting. Try again in a moment.", clash.DisplayTag(tag))
}

func notInLeagueText(player clash.Player) string {
	return notifier.NotEligibleText(player)
}

func trackingStartedText(player clash.Player, channelID string) string {
	return fmt.Sprintf("✅ Now tracking **%s** in <#%s>.", player.Name, channelID)
}

func trackedLine(player clash.Player, channelID string) string {
	return fmt.Sprintf("• **%s** (%s): %s in <#%s>", player.Name, clash.DisplayTag(player.Tag), notifier.TrophiesText(player.Trophies), channelID)
}

func trackedLineFallback(r tracking.TrackedPlayer) string {
	trophies := "unknown"
	if r.LastTrophyCount != nil {
		trophies = notifier.TrophiesText(*r.LastTrophyCount)
	}
	return fmt.Sprintf("• %s: %s in <#%s>", clash.DisplayTag(r.PlayerTag), trophies, r.DestinationID)
}

func summaryResultText(res summary.Result) string {
	return fmt.Sprintf("📊 Summary sent: %d delivered, %d not in Legend League, %d failed.", res.Sent, res.Ineligible, res.Failed)
}

// PlayerEmbed renders a player's profile.
func PlayerEmbed(p clash.Player) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s (%s)", p.Name, clash.DisplayTag(p.Tag)),
		Color: 0xf1c40f,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Trophies", Value: notifier.TrophiesText(p.Trophies), Inline: true},
			{Name: "Best", Value: notifier.TrophiesText(p.BestTrophies), Inline: true},
			{Name: "League", Value: p.LeagueName(), Inline: true},
			{Name: "Town Hall", Value: strconv.Itoa(p.TownHallLevel), Inline: true},
			{Name: "Level", Value: strconv.Itoa(p.ExpLevel), Inline: true},
			{Name: "Clan", Value: p.ClanName(), Inline: true},
		},
	}
	if icon := p.LeagueIcon(); icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: icon}
	}
	return embed
}
