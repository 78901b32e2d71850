package service

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/models"
	"github.com/lyzr/raffle/common/repository"
	"github.com/lyzr/raffle/common/validation"
)

// editableFields lists the participant fields a merge patch may touch
var editableFields = []string{"name", "contact"}

// ParticipantService manages the participant roster
type ParticipantService struct {
	store     repository.ParticipantStore
	validator *validation.Validator
	raffle    *RaffleService
	log       *logger.Logger
}

// NewParticipantService creates a participant service. Every mutation
// invalidates the raffle's cached read-out.
func NewParticipantService(store repository.ParticipantStore, validator *validation.Validator, raffle *RaffleService, log *logger.Logger) *ParticipantService {
	return &ParticipantService{
		store:     store,
		validator: validator,
		raffle:    raffle,
		log:       log,
	}
}

// Create registers a new participant
func (s *ParticipantService) Create(ctx context.Context, input models.ParticipantInput) (*models.Participant, error) {
	if err := s.validator.Validate(&input); err != nil {
		return nil, err
	}

	p := &models.Participant{Name: input.Name, Contact: input.Contact}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}

	s.raffle.Invalidate(ctx)
	s.log.WithContext(ctx).WithParticipantID(p.ID).Info("participant created")

	return p, nil
}

// Get retrieves one participant
func (s *ParticipantService) Get(ctx context.Context, id int64) (*models.Participant, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %d: %w", id, err)
	}
	return p, nil
}

// List returns every participant ordered by id
func (s *ParticipantService) List(ctx context.Context) ([]*models.Participant, error) {
	participants, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

// Update applies the non-nil fields of patch
func (s *ParticipantService) Update(ctx context.Context, id int64, patch models.ParticipantPatch) (*models.Participant, error) {
	if err := s.validator.Validate(&patch); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(p)
	return s.save(ctx, p)
}

// Patch applies an RFC 7386 merge patch over the editable fields
func (s *ParticipantService) Patch(ctx context.Context, id int64, doc []byte) (*models.Participant, error) {
	if err := validation.ValidateMergePatch(doc, editableFields...); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current, err := json.Marshal(p.Editable())
	if err != nil {
		return nil, fmt.Errorf("failed to encode participant: %w", err)
	}

	merged, err := jsonpatch.MergePatch(current, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to apply merge patch: %w", err)
	}

	var patch models.ParticipantPatch
	if err := json.Unmarshal(merged, &patch); err != nil {
		return nil, &validation.Error{Reason: fmt.Sprintf("invalid merge patch: %v", err)}
	}
	if err := s.validator.Validate(&patch); err != nil {
		return nil, err
	}

	patch.Apply(p)
	return s.save(ctx, p)
}

func (s *ParticipantService) save(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update participant %d: %w", p.ID, err)
	}

	s.raffle.Invalidate(ctx)
	s.log.WithContext(ctx).WithParticipantID(p.ID).Info("participant updated")

	return p, nil
}

// Delete removes a participant. Recipient references to it are kept and
// show up as empty recipients in the read-out.
func (s *ParticipantService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete participant %d: %w", id, err)
	}

	s.raffle.Invalidate(ctx)
	s.log.WithContext(ctx).WithParticipantID(id).Info("participant deleted")

	return nil
}
