package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contactRepository struct {
	mu       sync.RWMutex
	contacts map[primitive.ObjectID]*models.EmergencyContact
}

// NewEmergencyContactRepository returns an in-memory contact directory.
// Used when the engine runs without MongoDB and in tests.
func NewEmergencyContactRepository() interfaces.EmergencyContactRepository {
	return &contactRepository{
		contacts: make(map[primitive.ObjectID]*models.EmergencyContact),
	}
}

func (r *contactRepository) Create(ctx context.Context, contact *models.EmergencyContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if contact.ID.IsZero() {
		contact.ID = primitive.NewObjectID()
	}
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()

	stored := *contact
	r.contacts[contact.ID] = &stored
	return nil
}

func (r *contactRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.EmergencyContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var contacts []*models.EmergencyContact
	for _, c := range r.contacts {
		if c.UserID == userID {
			copied := *c
			contacts = append(contacts, &copied)
		}
	}

	// Primary contacts first, then oldest first, matching the MongoDB sort.
	sort.SliceStable(contacts, func(i, j int) bool {
		if contacts[i].IsPrimary != contacts[j].IsPrimary {
			return contacts[i].IsPrimary
		}
		return contacts[i].CreatedAt.Before(contacts[j].CreatedAt)
	})

	return contacts, nil
}

func (r *contactRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contacts[id]; !ok {
		return fmt.Errorf("emergency contact not found")
	}
	delete(r.contacts, id)
	return nil
}
