// internal/database/payment_repository.go
package database

import (
	"context"

	"marker-map/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SavePayment creates or updates a payment record.
func (m *MongoDB) SavePayment(ctx context.Context, payment *models.Payment) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": payment.ID}
	update := bson.M{"$set": payment}

	_, err := m.Payments.UpdateOne(ctx, filter, update, opts)
	return err
}

// ListSubscriptions returns a user's subscription records, newest
// first.
func (m *MongoDB) ListSubscriptions(ctx context.Context, userID string) ([]*models.Subscription, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := m.Subscriptions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []*models.Subscription
	for cursor.Next(ctx) {
		var sub models.Subscription
		if err := cursor.Decode(&sub); err != nil {
			return nil, err
		}
		subs = append(subs, &sub)
	}
	return subs, cursor.Err()
}

// SaveSubscription appends a subscription record.
func (m *MongoDB) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	_, err := m.Subscriptions.InsertOne(ctx, sub)
	return err
}

// SaveActivity appends a point-award audit record.
func (m *MongoDB) SaveActivity(ctx context.Context, activity *models.Activity) error {
	_, err := m.Activities.InsertOne(ctx, activity)
	return err
}
