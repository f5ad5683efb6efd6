// Package model defines the readings, baselines and classification records shared by the
// anomaly pipeline, the weather client and the store.
package model

import (
	"strings"
	"time"
)

// Season is one of four fixed calendar-month groupings.
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
)

// Seasons lists every season in calendar order starting from winter.
var Seasons = []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonAutumn}

// ParseSeason normalises s and reports whether it names a known season.
func ParseSeason(s string) (Season, bool) {
	season := Season(strings.ToLower(strings.TrimSpace(s)))
	return season, season.Valid()
}

// Valid reports whether s is one of the four known seasons.
func (s Season) Valid() bool {
	switch s {
	case SeasonWinter, SeasonSpring, SeasonSummer, SeasonAutumn:
		return true
	default:
		return false
	}
}

// Order returns the position of s within Seasons, or len(Seasons) when unknown.
func (s Season) Order() int {
	for i, season := range Seasons {
		if season == s {
			return i
		}
	}
	return len(Seasons)
}

// SeasonForMonth maps a calendar month to its season:
// Dec-Feb winter, Mar-May spring, Jun-Aug summer, Sep-Nov autumn.
func SeasonForMonth(m time.Month) Season {
	switch m {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonAutumn
	}
}
