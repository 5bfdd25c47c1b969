package mongodb

import (
	"context"
	"fmt"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type contactRepository struct {
	collection *mongo.Collection
}

func NewEmergencyContactRepository(db *mongo.Database) interfaces.EmergencyContactRepository {
	return &contactRepository{
		collection: db.Collection("emergency_contacts"),
	}
}

func (r *contactRepository) Create(ctx context.Context, contact *models.EmergencyContact) error {
	if contact.ID.IsZero() {
		contact.ID = primitive.NewObjectID()
	}
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, contact)
	if err != nil {
		return fmt.Errorf("failed to create emergency contact: %w", err)
	}

	return nil
}

func (r *contactRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.EmergencyContact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "is_primary", Value: -1}, {Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query emergency contacts: %w", err)
	}
	defer cursor.Close(ctx)

	var contacts []*models.EmergencyContact
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode emergency contacts: %w", err)
	}

	return contacts, nil
}

func (r *contactRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete emergency contact: %w", err)
	}
	return nil
}
