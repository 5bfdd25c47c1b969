package mongodb

import (
	"context"
	"fmt"

	"lifeline/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userProfileRepository struct {
	collection *mongo.Collection
}

func NewUserProfileRepository(db *mongo.Database) interfaces.UserProfileRepository {
	return &userProfileRepository{
		collection: db.Collection("users"),
	}
}

type userProfileDoc struct {
	Phone      string `bson:"phone"`
	Country    string `bson:"country"`
	SOSPinHash string `bson:"sos_pin_hash"`
}

func (r *userProfileRepository) fetch(ctx context.Context, userID primitive.ObjectID) (*userProfileDoc, error) {
	opts := options.FindOne().SetProjection(bson.M{"phone": 1, "country": 1, "sos_pin_hash": 1})

	var doc userProfileDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return &doc, nil
}

func (r *userProfileRepository) GetPhone(ctx context.Context, userID primitive.ObjectID) (string, error) {
	doc, err := r.fetch(ctx, userID)
	if err != nil {
		return "", err
	}
	return doc.Phone, nil
}

func (r *userProfileRepository) GetCountry(ctx context.Context, userID primitive.ObjectID) (string, error) {
	doc, err := r.fetch(ctx, userID)
	if err != nil {
		return "", err
	}
	return doc.Country, nil
}

func (r *userProfileRepository) GetPinHash(ctx context.Context, userID primitive.ObjectID) (string, error) {
	doc, err := r.fetch(ctx, userID)
	if err != nil {
		return "", err
	}
	return doc.SOSPinHash, nil
}
