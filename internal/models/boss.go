package models

import (
	"time"

	"github.com/lib/pq"
)

// RaidBoss is a read-only catalog entry for a raid encounter.
type RaidBoss struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Tier           string         `db:"tier" json:"tier"`
	RaidType       string         `db:"raid_type" json:"raid_type"`
	CPNoWeather    int            `db:"cp_no_weather" json:"cp_no_weather"`
	CPWeatherBoost int            `db:"cp_weather_boost" json:"cp_weather_boost"`
	MaxPartySize   int            `db:"max_party_size" json:"max_party_size"`
	Sprite         string         `db:"sprite" json:"sprite,omitempty"`
	Aliases        pq.StringArray `db:"aliases" json:"aliases,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Raid types as stored in the catalog.
const (
	RaidTypeRegular   = "Regular"
	RaidTypeMega      = "Mega"
	RaidTypeLegendary = "Legendary"
	RaidTypeMax       = "Max"
	RaidTypeGMax      = "G-max"
	RaidTypeSpecial   = "Special"
)
