// internal/database/marker_repository.go
package database

import (
	"context"
	"fmt"
	"time"

	"marker-map/internal/models"
	"marker-map/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MarkerDocument represents the MongoDB schema for a marker
type MarkerDocument struct {
	ID              string             `bson:"_id"`
	Type            string             `bson:"type"`
	Title           string             `bson:"title"`
	Description     string             `bson:"description,omitempty"`
	Location        models.Location    `bson:"location"`
	Media           []models.MediaItem `bson:"media,omitempty"`
	CreatedBy       string             `bson:"createdBy"`
	CreatedAt       time.Time          `bson:"createdAt"`
	Status          string             `bson:"status"`
	Confirmations   int                `bson:"confirmations"`
	ConfirmationsBy []string           `bson:"confirmationsBy"`
	Comments        []models.Comment   `bson:"comments"`
	RatingsBy       map[string]int     `bson:"ratingsBy"`
}

// SaveMarker creates or updates a marker in MongoDB
func (m *MongoDB) SaveMarker(ctx context.Context, marker *models.Marker) error {
	doc := MarkerDocument{
		ID:              marker.ID.String(),
		Type:            string(marker.Type),
		Title:           marker.Title,
		Description:     marker.Description,
		Location:        marker.Location,
		Media:           marker.Media,
		CreatedBy:       marker.CreatedBy,
		CreatedAt:       marker.CreatedAt,
		Status:          string(marker.Status),
		Confirmations:   marker.Confirmations,
		ConfirmationsBy: marker.ConfirmationsBy,
		Comments:        marker.Comments,
		RatingsBy:       marker.RatingsBy,
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	_, err := m.Markers.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetMarker retrieves a marker from MongoDB by its ID
func (m *MongoDB) GetMarker(ctx context.Context, id uuid.UUID) (*models.Marker, error) {
	var doc MarkerDocument

	err := m.Markers.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewMarkerNotFoundError(id.String())
	}
	if err != nil {
		return nil, err
	}
	return docToMarker(&doc)
}

// ListMarkers returns every stored marker in creation order.
func (m *MongoDB) ListMarkers(ctx context.Context) ([]*models.Marker, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := m.Markers.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var markers []*models.Marker
	for cursor.Next(ctx) {
		var doc MarkerDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		marker, err := docToMarker(&doc)
		if err != nil {
			return nil, err
		}
		markers = append(markers, marker)
	}
	return markers, cursor.Err()
}

func docToMarker(doc *MarkerDocument) (*models.Marker, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid marker ID in database: %v", err)
	}

	marker := &models.Marker{
		ID:              id,
		Type:            models.MarkerType(doc.Type),
		Title:           doc.Title,
		Description:     doc.Description,
		Location:        doc.Location,
		Media:           doc.Media,
		CreatedBy:       doc.CreatedBy,
		CreatedAt:       doc.CreatedAt,
		Status:          models.MarkerStatus(doc.Status),
		Confirmations:   doc.Confirmations,
		ConfirmationsBy: doc.ConfirmationsBy,
		Comments:        doc.Comments,
		RatingsBy:       doc.RatingsBy,
	}
	if marker.ConfirmationsBy == nil {
		marker.ConfirmationsBy = make([]string, 0)
	}
	if marker.Comments == nil {
		marker.Comments = make([]models.Comment, 0)
	}
	if marker.RatingsBy == nil {
		marker.RatingsBy = make(map[string]int)
	}
	return marker, nil
}
