package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lyzr/raffle/common/models"
)

var (
	// ErrNotFound is returned when a participant id does not exist
	ErrNotFound = errors.New("participant not found")

	// ErrDuplicateContact is returned when a contact is already registered
	ErrDuplicateContact = errors.New("contact already registered")

	// ErrPersistence matches any store failure wrapped in *StoreError
	ErrPersistence = errors.New("persistence failure")
)

// StoreError wraps a driver failure with the operation that hit it
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) classify store failures
func (e *StoreError) Is(target error) bool {
	return target == ErrPersistence
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// ParticipantStore persists participants and their recipient references
type ParticipantStore interface {
	// Create inserts p and fills in its id and timestamps
	Create(ctx context.Context, p *models.Participant) error

	// GetByID retrieves one participant
	GetByID(ctx context.Context, id int64) (*models.Participant, error)

	// List returns every participant ordered by id
	List(ctx context.Context) ([]*models.Participant, error)

	// Update writes name and contact of p
	Update(ctx context.Context, p *models.Participant) error

	// Delete removes a participant. References to it are left dangling.
	Delete(ctx context.Context, id int64) error

	// SetRecipient records that giverID gives to recipientID
	SetRecipient(ctx context.Context, giverID, recipientID int64) error

	// AssignmentRows left-joins every participant with its recipient,
	// ordered by giver name (byte order) then id
	AssignmentRows(ctx context.Context) ([]models.AssignmentRow, error)

	// InTx runs fn against a store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx ParticipantStore) error) error

	Health(ctx context.Context) error
	Close()
}
