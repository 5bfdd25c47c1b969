package memory

import (
	"context"
	"fmt"
	"sync"

	"lifeline/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserProfile is the seed record for the in-memory profile store.
type UserProfile struct {
	Phone      string
	Country    string
	SOSPinHash string
}

// UserProfileStore is the in-memory profile store. Exported so dev-mode
// seeding and tests can call Seed.
type UserProfileStore struct {
	mu       sync.RWMutex
	profiles map[primitive.ObjectID]UserProfile
}

func NewUserProfileRepository() *UserProfileStore {
	return &UserProfileStore{
		profiles: make(map[primitive.ObjectID]UserProfile),
	}
}

var _ interfaces.UserProfileRepository = (*UserProfileStore)(nil)

// Seed registers or replaces a user's profile.
func (r *UserProfileStore) Seed(userID primitive.ObjectID, profile UserProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[userID] = profile
}

func (r *UserProfileStore) get(userID primitive.ObjectID) (UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return UserProfile{}, fmt.Errorf("user not found")
	}
	return profile, nil
}

func (r *UserProfileStore) GetPhone(ctx context.Context, userID primitive.ObjectID) (string, error) {
	profile, err := r.get(userID)
	if err != nil {
		return "", err
	}
	return profile.Phone, nil
}

func (r *UserProfileStore) GetCountry(ctx context.Context, userID primitive.ObjectID) (string, error) {
	profile, err := r.get(userID)
	if err != nil {
		return "", err
	}
	return profile.Country, nil
}

func (r *UserProfileStore) GetPinHash(ctx context.Context, userID primitive.ObjectID) (string, error) {
	profile, err := r.get(userID)
	if err != nil {
		return "", err
	}
	return profile.SOSPinHash, nil
}
