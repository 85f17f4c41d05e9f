package model

import "time"

type FeederStatus string

const (
	FeederActive      FeederStatus = "active"
	FeederMaintenance FeederStatus = "maintenance"
	FeederFeeding     FeederStatus = "feeding"
	FeederOffline     FeederStatus = "offline"
)

// AllFeeders is the virtual id aggregating the whole network.
const AllFeeders = "all"

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type Feeder struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Location        Location     `json:"location"`
	Status          FeederStatus `json:"status"`
	FoodLevel       int          `json:"foodLevel"`
	AnimalsDetected int          `json:"animalsDetected"`
	LastFeedingAt   *time.Time   `json:"lastFeedingAt,omitempty"`
	LiveStreamURL   string       `json:"liveStreamUrl,omitempty"`
}
