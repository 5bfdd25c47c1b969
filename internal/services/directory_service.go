package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cache is the slice of the redis client the directory uses. Nil is a valid
// cache: lookups fall through to the repositories and PIN attempt counters
// fall back to process memory.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Increment(ctx context.Context, key string) (int64, error)
	SetExpire(ctx context.Context, key string, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DirectoryService reads user-owned data the engine does not manage itself:
// emergency contacts, phone, country and the safety PIN.
type DirectoryService interface {
	GetEmergencyContacts(ctx context.Context, userID primitive.ObjectID) ([]*models.EmergencyContact, error)
	GetUserPhone(ctx context.Context, userID primitive.ObjectID) (string, error)
	GetUserCountry(ctx context.Context, userID primitive.ObjectID) (string, error)
	VerifyPin(ctx context.Context, userID primitive.ObjectID, pin string) (bool, error)
	RecordPinFailure(ctx context.Context, incidentID primitive.ObjectID) int
	PinAttempts(ctx context.Context, incidentID primitive.ObjectID) int
}

const (
	contactCacheTTL    = 5 * time.Minute
	pinAttemptWindow   = 30 * time.Minute
	contactCachePrefix = "sos:contacts:"
	pinAttemptPrefix   = "sos:pin_attempts:"
)

type directoryService struct {
	contactRepo interfaces.EmergencyContactRepository
	profileRepo interfaces.UserProfileRepository
	cache       Cache
	logger      *logger.Logger

	mu          sync.Mutex
	pinFailures map[primitive.ObjectID]int // fallback when cache is nil
}

func NewDirectoryService(
	contactRepo interfaces.EmergencyContactRepository,
	profileRepo interfaces.UserProfileRepository,
	cache Cache,
	log *logger.Logger,
) DirectoryService {
	return &directoryService{
		contactRepo: contactRepo,
		profileRepo: profileRepo,
		cache:       cache,
		logger:      log,
		pinFailures: make(map[primitive.ObjectID]int),
	}
}

// GetEmergencyContacts is a read-through cache over the contact repository.
// Cache errors degrade to a repository read.
func (s *directoryService) GetEmergencyContacts(ctx context.Context, userID primitive.ObjectID) ([]*models.EmergencyContact, error) {
	cacheKey := contactCachePrefix + userID.Hex()

	if s.cache != nil {
		var cached []*models.EmergencyContact
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	contacts, err := s.contactRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load emergency contacts: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, contacts, contactCacheTTL); err != nil {
			s.logger.WithUserID(userID).WithError(err).Warn("Failed to cache emergency contacts")
		}
	}

	return contacts, nil
}

func (s *directoryService) GetUserPhone(ctx context.Context, userID primitive.ObjectID) (string, error) {
	return s.profileRepo.GetPhone(ctx, userID)
}

func (s *directoryService) GetUserCountry(ctx context.Context, userID primitive.ObjectID) (string, error) {
	return s.profileRepo.GetCountry(ctx, userID)
}

// VerifyPin compares the offered PIN against the stored hash. A user without
// a configured PIN can never verify.
func (s *directoryService) VerifyPin(ctx context.Context, userID primitive.ObjectID, pin string) (bool, error) {
	storedHash, err := s.profileRepo.GetPinHash(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load safety pin: %w", err)
	}
	if storedHash == "" {
		return false, nil
	}

	offered := utils.HashPin(pin)
	return subtle.ConstantTimeCompare([]byte(offered), []byte(storedHash)) == 1, nil
}

// RecordPinFailure bumps the per-incident failure counter and returns the new
// total. The counter is scoped to the incident, not the user; a new incident
// starts clean.
func (s *directoryService) RecordPinFailure(ctx context.Context, incidentID primitive.ObjectID) int {
	if s.cache != nil {
		key := pinAttemptPrefix + incidentID.Hex()
		count, err := s.cache.Increment(ctx, key)
		if err == nil {
			if count == 1 {
				if err := s.cache.SetExpire(ctx, key, pinAttemptWindow); err != nil {
					s.logger.WithIncidentID(incidentID).WithError(err).Warn("Failed to expire pin attempt counter")
				}
			}
			return int(count)
		}
		s.logger.WithIncidentID(incidentID).WithError(err).Warn("Pin attempt counter unavailable, using in-process fallback")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinFailures[incidentID]++
	return s.pinFailures[incidentID]
}

func (s *directoryService) PinAttempts(ctx context.Context, incidentID primitive.ObjectID) int {
	if s.cache != nil {
		key := pinAttemptPrefix + incidentID.Hex()
		var count int
		if err := s.cache.Get(ctx, key, &count); err == nil {
			return count
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinFailures[incidentID]
}
