package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentPlan selects the PRO duration being purchased.
type PaymentPlan string

const (
	PlanTrial   PaymentPlan = "trial"
	PlanMonthly PaymentPlan = "monthly"
)

// PaymentStatus tracks the provider-side lifecycle of a payment.
type PaymentStatus string

const (
	PaymentCreated PaymentStatus = "created"
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFail    PaymentStatus = "fail"
)

type Payment struct {
	ID         uuid.UUID     `json:"id" bson:"_id"`
	UserID     string        `json:"userId" bson:"userId"`
	Provider   string        `json:"provider" bson:"provider"`
	ExternalID string        `json:"externalId" bson:"externalId"`
	Plan       PaymentPlan   `json:"plan" bson:"plan"`
	AmountRub  int           `json:"amountRub" bson:"amountRub"`
	Status     PaymentStatus `json:"status" bson:"status"`
	LinkURL    string        `json:"linkUrl" bson:"linkUrl"`
	CreatedAt  time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Subscription records how a user came to hold PRO status. The user
// document remains the source of truth for the entitlement itself.
type Subscription struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	Status    string    `json:"status" bson:"status"` // "active" or "expired"
	Type      string    `json:"type" bson:"type"`     // "trial", "paid", "points", "free_top"
	StartAt   time.Time `json:"startAt" bson:"startAt"`
	EndAt     time.Time `json:"endAt" bson:"endAt"`
	Source    string    `json:"source" bson:"source"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Activity is an append-only audit record of a point award.
type Activity struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	Type      string    `json:"type" bson:"type"` // create_marker, confirm, comment, rate, daily
	Points    int       `json:"points" bson:"points"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
