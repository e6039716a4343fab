// internal/database/user_repository.go
package database

import (
	"context"
	"time"

	"marker-map/internal/models"
	"marker-map/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserDocument represents the MongoDB schema for a user
type UserDocument struct {
	ID             string     `bson:"_id"`
	Name           string     `bson:"name"`
	Role           string     `bson:"role"`
	Points         int        `bson:"points"`
	IsPro          bool       `bson:"isPro"`
	ProUntil       *time.Time `bson:"proUntil,omitempty"`
	Prefix         string     `bson:"prefix,omitempty"`
	DailyClaimedAt *time.Time `bson:"dailyClaimedAt,omitempty"`
	MapStyle       string     `bson:"mapStyle"`
	CreatedAt      time.Time  `bson:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt"`
}

// SaveUser creates or updates a user in MongoDB
func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	doc := UserDocument{
		ID:             user.ID,
		Name:           user.Name,
		Role:           string(user.Role),
		Points:         user.Points,
		IsPro:          user.IsPro,
		ProUntil:       user.ProUntil,
		Prefix:         user.Prefix,
		DailyClaimedAt: user.DailyClaimedAt,
		MapStyle:       user.Settings.MapStyle,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": user.ID}
	update := bson.M{"$set": doc}

	_, err := m.Users.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetUser retrieves a user from MongoDB by their client id
func (m *MongoDB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var doc UserDocument

	err := m.Users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", err)
	}
	if err != nil {
		return nil, err
	}

	return docToUser(&doc), nil
}

// ListUsers returns every stored user in creation order, which is the
// order users first resolved in.
func (m *MongoDB) ListUsers(ctx context.Context) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := m.Users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, docToUser(&doc))
	}
	return users, cursor.Err()
}

func docToUser(doc *UserDocument) *models.User {
	return &models.User{
		ID:             doc.ID,
		Name:           doc.Name,
		Role:           models.UserRole(doc.Role),
		Points:         doc.Points,
		IsPro:          doc.IsPro,
		ProUntil:       doc.ProUntil,
		Prefix:         doc.Prefix,
		DailyClaimedAt: doc.DailyClaimedAt,
		Settings:       models.Settings{MapStyle: doc.MapStyle},
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}
