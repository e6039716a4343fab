package models

import (
	"time"

	"github.com/google/uuid"
)

// MarkerType is the hazard/service category of a marker.
type MarkerType string

const (
	MarkerDPS      MarkerType = "dps"
	MarkerCamera   MarkerType = "camera"
	MarkerParking  MarkerType = "parking"
	MarkerAccident MarkerType = "accident"
	MarkerRoadwork MarkerType = "roadwork"
	MarkerHazard   MarkerType = "hazard"
)

// KnownMarkerType reports whether t is one of the supported categories.
func KnownMarkerType(t MarkerType) bool {
	switch t {
	case MarkerDPS, MarkerCamera, MarkerParking, MarkerAccident, MarkerRoadwork, MarkerHazard:
		return true
	}
	return false
}

// MarkerStatus is the moderation state of a marker.
// A marker is born pending and moves to active or rejected exactly once.
type MarkerStatus string

const (
	StatusPending  MarkerStatus = "pending"
	StatusActive   MarkerStatus = "active"
	StatusRejected MarkerStatus = "rejected"
)

type Location struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// MediaItem is an uploaded attachment, already converted to a data URL
// or remote URL by the client.
type MediaItem struct {
	Kind    string `json:"kind" bson:"kind"` // "image" or "video"
	Payload string `json:"payload" bson:"payload"`
}

type Comment struct {
	ID        uuid.UUID `json:"id" bson:"id"`
	UserID    string    `json:"userId" bson:"userId"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type Marker struct {
	ID              uuid.UUID      `json:"id" bson:"_id"`
	Type            MarkerType     `json:"type" bson:"type"`
	Title           string         `json:"title" bson:"title"`
	Description     string         `json:"description,omitempty" bson:"description,omitempty"`
	Location        Location       `json:"location" bson:"location"`
	Media           []MediaItem    `json:"media,omitempty" bson:"media,omitempty"`
	CreatedBy       string         `json:"createdBy" bson:"createdBy"`
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
	Status          MarkerStatus   `json:"status" bson:"status"`
	Confirmations   int            `json:"confirmations" bson:"confirmations"`
	ConfirmationsBy []string       `json:"confirmationsBy" bson:"confirmationsBy"`
	Comments        []Comment      `json:"comments" bson:"comments"`
	RatingsBy       map[string]int `json:"ratingsBy" bson:"ratingsBy"`
}

// ConfirmedBy reports whether userID has already confirmed the marker.
func (m *Marker) ConfirmedBy(userID string) bool {
	for _, id := range m.ConfirmationsBy {
		if id == userID {
			return true
		}
	}
	return false
}

// RatingAverage returns the mean of all ratings, or 0 when unrated.
func (m *Marker) RatingAverage() float64 {
	if len(m.RatingsBy) == 0 {
		return 0
	}
	sum := 0
	for _, v := range m.RatingsBy {
		sum += v
	}
	return float64(sum) / float64(len(m.RatingsBy))
}
