// Package trophy classifies Legend League trophy changes into attack and
// defense outcomes and renders the announcement for each.
package trophy

import "fmt"

// Category is the outcome a trophy delta is attributed to.
type Category string

const (
	CategoryNone Category = ""

	ThreeStarAttackWin Category = "three-star-attack-win"
	TwoStarAttackWin   Category = "two-star-attack-win"
	OneStarAttackWin   Category = "one-star-attack-win"
	GenericAttackGain  Category = "generic-attack-gain"

	ThreeStarDefenseLoss Category = "three-star-defense-loss"
	TwoStarDefenseLoss   Category = "two-star-defense-loss"
	OneStarDefenseLoss   Category = "one-star-defense-loss"
	GenericDefenseLoss   Category = "generic-defense-loss"
)

// IsAttack reports whether c is a gain.
func (c Category) IsAttack() bool {
	switch c {
	case ThreeStarAttackWin, TwoStarAttackWin, OneStarAttackWin, GenericAttackGain:
		return true
	}
	return false
}

// Event is a classified trophy change ready to be announced.
type Event struct {
	Tag        string   `json:"tag" msgpack:"tag"`
	PlayerName string   `json:"player_name" msgpack:"player_name"`
	Delta      int      `json:"delta" msgpack:"delta"`
	Category   Category `json:"category" msgpack:"category"`
	Message    string   `json:"message" msgpack:"message"`
}

// Classify maps a non-zero delta to its category. A zero delta is never a
// change and yields CategoryNone.
func Classify(delta int) Category {
	switch {
	case delta > 0:
		switch {
		case delta == 40:
			return ThreeStarAttackWin
		case delta >= 16 && delta <= 32:
			return TwoStarAttackWin
		case delta >= 1 && delta <= 15:
			return OneStarAttackWin
		default:
			return GenericAttackGain
		}
	case delta < 0:
		magnitude := -delta
		switch {
		case magnitude == 40:
			return ThreeStarDefenseLoss
		case magnitude >= 16 && magnitude <= 32:
			return TwoStarDefenseLoss
		case magnitude >= 1 && magnitude <= 15:
			return OneStarDefenseLoss
		default:
			return GenericDefenseLoss
		}
	}
	return CategoryNone
}

// NewEvent classifies delta and renders its message.
func NewEvent(tag, playerName string, delta int) Event {
	category := Classify(delta)
	return Event{
		Tag:        tag,
		PlayerName: playerName,
		Delta:      delta,
		Category:   category,
		Message:    Format(category, playerName, delta),
	}
}

// Format renders the announcement for a classified change.
func Format(category Category, playerName string, delta int) string {
	change := fmt.Sprintf("Trophy change: %+d 🏆", delta)
	switch category {
	case ThreeStarAttackWin:
		return fmt.Sprintf("⚔️ **ATTACK WON!** \n%s got a 3-star attack!\n%s", playerName, change)
	case TwoStarAttackWin:
		return fmt.Sprintf("⚔️ **ATTACK WON!** \n%s got a 2-star attack!\n%s", playerName, change)
	case OneStarAttackWin:
		return fmt.Sprintf("⚔️ **ATTACK WON!** \n%s got a 1-star attack!\n%s", playerName, change)
	case GenericAttackGain:
		return fmt.Sprintf("⚔️ **LEGEND LEAGUE ATTACK!** ⚔️\n%s gained some trophies\n%s", playerName, change)
	case ThreeStarDefenseLoss:
		return fmt.Sprintf("🛡️ **DEFENSE LOST!** \n%s's base was 3-starred\n%s", playerName, change)
	case TwoStarDefenseLoss:
		return fmt.Sprintf("🛡️ **DEFENSE LOST!** \n%s's base was 2-starred\n%s", playerName, change)
	case OneStarDefenseLoss:
		return fmt.Sprintf("🛡️ **DEFENSE LOST!** \n%s's base was 1-starred\n%s", playerName, change)
	case GenericDefenseLoss:
		return fmt.Sprintf("🛡️ **DEFENSE RESULT** 🛡️\n%s lost some trophies\n%s", playerName, change)
	}
	return ""
}
