package models

import (
	"time"
)

// UserRole distinguishes ordinary users from moderation admins.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Settings holds per-user presentation preferences.
type Settings struct {
	MapStyle string `json:"mapStyle" bson:"mapStyle"`
}

type User struct {
	ID             string     `json:"id" bson:"_id"`
	Name           string     `json:"name" bson:"name"`
	Role           UserRole   `json:"role" bson:"role"`
	Points         int        `json:"points" bson:"points"`
	IsPro          bool       `json:"isPro" bson:"isPro"`
	ProUntil       *time.Time `json:"proUntil,omitempty" bson:"proUntil,omitempty"`
	Prefix         string     `json:"prefix,omitempty" bson:"prefix,omitempty"`
	DailyClaimedAt *time.Time `json:"dailyClaimedAt,omitempty" bson:"dailyClaimedAt,omitempty"`
	Settings       Settings   `json:"settings" bson:"settings"`
	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// MapStyle is an entry in the style catalog. Pro styles may only be
// selected by users holding an active PRO entitlement.
type MapStyle struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ProOnly bool   `json:"proOnly"`
}

// DefaultMapStyle is the style every new user starts with.
const DefaultMapStyle = "classic"

// MapStyles returns the catalog of selectable map styles.
func MapStyles() []MapStyle {
	return []MapStyle{
		{ID: "classic", Name: "Classic"},
		{ID: "dark", Name: "Dark", ProOnly: true},
	}
}
