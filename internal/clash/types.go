package clash

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPlayerNotFound is returned when the API has no player for the tag.
// It is terminal for that tag.
var ErrPlayerNotFound = errors.New("player not found")

// APIError is a non-OK answer from the API other than 404. Callers treat it as
// transient.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("clash api returned %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("clash api returned %d", e.StatusCode)
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, ErrPlayerNotFound)
}

// Player is a snapshot of a player's profile.
type Player struct {
	Tag           string  `json:"tag"`
	Name          string  `json:"name"`
	Trophies      int     `json:"trophies"`
	BestTrophies  int     `json:"bestTrophies"`
	TownHallLevel int     `json:"townHallLevel"`
	ExpLevel      int     `json:"expLevel"`
	League        *League `json:"league,omitempty"`
	Clan          *Clan   `json:"clan,omitempty"`
}

type League struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	IconURLs IconURLs `json:"iconUrls"`
}

type IconURLs struct {
	Small  string `json:"small"`
	Tiny   string `json:"tiny"`
	Medium string `json:"medium"`
}

type Clan struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	ClanLevel int    `json:"clanLevel"`
}

// InLeague reports whether the player currently sits in the given league.
func (p Player) InLeague(id int) bool {
	return p.League != nil && p.League.ID == id
}

// LeagueName returns the league name or "Unranked".
func (p Player) LeagueName() string {
	if p.League == nil || p.League.Name == "" {
		return "Unranked"
	}
	return p.League.Name
}

// ClanName returns the clan name or "No Clan".
func (p Player) ClanName() string {
	if p.Clan == nil || p.Clan.Name == "" {
		return "No Clan"
	}
	return p.Clan.Name
}

// LeagueIcon returns the medium league icon, if any.
func (p Player) LeagueIcon() string {
	if p.League == nil {
		return ""
	}
	if p.League.IconURLs.Medium != "" {
		return p.League.IconURLs.Medium
	}
	return p.League.IconURLs.Small
}

// NormalizeTag strips the leading '#' and whitespace and upper-cases the tag.
// The letter O is a common typo for 0, which the API never uses in tags.
func NormalizeTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	tag = strings.TrimLeft(tag, "#")
	return strings.ReplaceAll(tag, "O", "0")
}

// DisplayTag renders a normalized tag the way the game shows it.
func DisplayTag(tag string) string {
	return "#" + NormalizeTag(tag)
}
