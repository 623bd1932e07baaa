package notifier

import (
	"errors"
	"testing"

	"github.com/mauv0809/legend-tracker/internal/clash"
	"github.com/mauv0809/legend-tracker/internal/trophy"
	"github.com/stretchr/testify/assert"
)

func TestFanout(t *testing.T) {
	primary := NewMock()
	mirror := NewMock()
	mirror.SendFunc = func(Call) error { return errors.New("mirror down") }

	f := NewFanout(primary, mirror)

	err := f.SendTrophyChange("chan-1", trophy.NewEvent("ABC", "Chief", 40))
	assert.NoError(t, err, "mirror failures are not returned")
	assert.Equal(t, 1, primary.Count(KindTrophyChange))
	assert.Equal(t, 1, mirror.Count(KindTrophyChange))

	primary.SendFunc = func(Call) error { return errors.New("discord down") }
	err = f.SendTrackingStopped("chan-1", "Chief")
	assert.EqualError(t, err, "discord down")
	assert.Equal(t, 1, mirror.Count(KindTrackingStopped), "mirrors still receive the message")
}

func TestTexts(t *testing.T) {
	p := clash.Player{Name: "Chief"}
	assert.Equal(t, "🏆 Starting Legend League trophy tracking for Chief at 5000 trophies", TrackingStartedText(p, 5000))
	assert.Equal(t, "❌ Cannot track Chief - Player must be in Legend League! Current league: Unranked", NotEligibleText(p))
	assert.Equal(t, "🔺 +100", SummaryChangeText(100))
	assert.Equal(t, "🔺 +0", SummaryChangeText(0))
	assert.Equal(t, "🔻 -24", SummaryChangeText(-24))
	assert.Equal(t, 100, DailySummary{Start: 5000, Current: 5100}.Delta())
}
