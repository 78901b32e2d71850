package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/raffle/common/bootstrap"
	"github.com/lyzr/raffle/common/cache"
	"github.com/lyzr/raffle/common/lock"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/models"
	"github.com/lyzr/raffle/common/queue"
	"github.com/lyzr/raffle/common/random"
	"github.com/lyzr/raffle/common/repository"
	"github.com/lyzr/raffle/common/telemetry"
)

const (
	// GenerationLockKey serialises generation runs across instances
	GenerationLockKey = "raffle:generation"

	// AssignmentsCacheKey holds the encoded reader output
	AssignmentsCacheKey = "raffle:assignments"

	// AssignmentsVersionKey holds the token rotated by every invalidation.
	// A cached read-out is served only while its token is current.
	AssignmentsVersionKey = "raffle:assignments:version"

	// AssignmentsTopic receives one AssignmentEvent per pairing
	AssignmentsTopic = "raffle.assignments"
)

// minVersionTTL keeps the version token alive longer than any entry
// tagged with it
const minVersionTTL = 24 * time.Hour

// cachedAssignments is the cache entry behind AssignmentsCacheKey
type cachedAssignments struct {
	Version string                 `json:"version"`
	Rows    []models.AssignmentRow `json:"rows"`
}

// RaffleService generates and reads gift-exchange assignments
type RaffleService struct {
	store     repository.ParticipantStore
	shuffler  random.Shuffler
	locker    lock.Locker
	cache     cache.Cache
	queue     queue.Queue
	telemetry *telemetry.Telemetry
	log       *logger.Logger
	lockTTL   time.Duration
	cacheTTL  time.Duration
}

// NewRaffleService creates a raffle service. Cache, queue and telemetry
// are optional.
func NewRaffleService(store repository.ParticipantStore, components *bootstrap.Components) *RaffleService {
	return &RaffleService{
		store:     store,
		shuffler:  components.Shuffler,
		locker:    components.Locker,
		cache:     components.Cache,
		queue:     components.Queue,
		telemetry: components.Telemetry,
		log:       components.Logger,
		lockTTL:   components.Config.Raffle.LockTTL,
		cacheTTL:  components.Config.Cache.DefaultTTL,
	}
}

// Generate draws a new assignment over every participant and persists it
// in one transaction. The pairings come back in draw order.
func (s *RaffleService) Generate(ctx context.Context) (uuid.UUID, []models.Pairing, error) {
	start := time.Now()
	defer s.telemetry.RecordDuration("raffle.generate", start)

	generationID := uuid.New()
	log := s.log.WithContext(ctx).WithGenerationID(generationID.String())

	release, err := s.locker.Acquire(ctx, GenerationLockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			log.Warn("generation already running")
			return uuid.Nil, nil, err
		}
		return uuid.Nil, nil, fmt.Errorf("failed to acquire generation lock: %w", err)
	}
	defer release()

	var pairings []models.Pairing
	err = s.store.InTx(ctx, func(tx repository.ParticipantStore) error {
		participants, err := tx.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}

		pairings, err = drawCycle(ctx, tx, participants, s.shuffler)
		return err
	})
	if err != nil {
		log.Error("generation failed", "error", err)
		return uuid.Nil, nil, err
	}

	if len(pairings) > 0 {
		s.invalidate(ctx)
		s.publish(ctx, generationID, pairings)
	}

	log.Info("assignments generated", "pairs", len(pairings))
	s.telemetry.RecordEvent("assignments_generated", map[string]any{
		"generation_id": generationID.String(),
		"pairs":         len(pairings),
	})

	return generationID, pairings, nil
}

// drawCycle shuffles participants in place and links each one to its
// successor, closing the cycle at the end. With one participant the cycle
// is a self-assignment. Both sides of every pairing carry the record as
// stored after the run.
func drawCycle(ctx context.Context, store repository.ParticipantStore, participants []*models.Participant, shuffler random.Shuffler) ([]models.Pairing, error) {
	n := len(participants)
	pairings := make([]models.Pairing, 0, n)
	if n == 0 {
		return pairings, nil
	}

	shuffler.Shuffle(n, func(i, j int) {
		participants[i], participants[j] = participants[j], participants[i]
	})

	for i, giver := range participants {
		recipientID := participants[(i+1)%n].ID

		if err := store.SetRecipient(ctx, giver.ID, recipientID); err != nil {
			return nil, fmt.Errorf("failed to assign participant %d: %w", giver.ID, err)
		}
		giver.RecipientID = &recipientID
	}

	for i, giver := range participants {
		pairings = append(pairings, models.Pairing{Giver: *giver, Recipient: *participants[(i+1)%n]})
	}

	return pairings, nil
}

// Read returns every participant with its resolved recipient, sorted by
// giver name. Missing or deleted recipients come back as nulls.
func (s *RaffleService) Read(ctx context.Context) ([]models.AssignmentRow, error) {
	start := time.Now()
	defer s.telemetry.RecordDuration("raffle.read", start)

	// the version is taken before querying so rows read before a
	// concurrent invalidation are tagged with the superseded token
	version, cacheable := s.cacheVersion(ctx)
	if cacheable {
		if rows, ok := s.cached(ctx, version); ok {
			return rows, nil
		}
	}

	rows, err := s.store.AssignmentRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read assignments: %w", err)
	}

	if cacheable {
		s.remember(ctx, version, rows)
	}

	return rows, nil
}

// Invalidate drops the cached reader output
func (s *RaffleService) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

// cacheVersion returns the current version token. A missing token is the
// empty version; an unreachable cache disables caching for this read.
func (s *RaffleService) cacheVersion(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	token, ok, err := s.cache.Get(ctx, AssignmentsVersionKey)
	if err != nil {
		s.log.Warn("assignment cache unavailable", "error", err)
		return "", false
	}
	if !ok {
		return "", true
	}
	return string(token), true
}

func (s *RaffleService) cached(ctx context.Context, version string) ([]models.AssignmentRow, bool) {
	encoded, ok, err := s.cache.Get(ctx, AssignmentsCacheKey)
	if err != nil {
		s.log.Warn("assignment cache unavailable", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry cachedAssignments
	if err := json.Unmarshal(encoded, &entry); err != nil {
		s.log.Warn("dropping undecodable cache entry", "error", err)
		return nil, false
	}
	if entry.Version != version {
		s.log.Debug("ignoring superseded assignment cache entry", "version", entry.Version)
		return nil, false
	}
	if entry.Rows == nil {
		entry.Rows = make([]models.AssignmentRow, 0)
	}
	return entry.Rows, true
}

func (s *RaffleService) remember(ctx context.Context, version string, rows []models.AssignmentRow) {
	encoded, err := json.Marshal(cachedAssignments{Version: version, Rows: rows})
	if err != nil {
		s.log.Warn("failed to encode assignments for cache", "error", err)
		return
	}
	if err := s.cache.Set(ctx, AssignmentsCacheKey, encoded, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache assignments", "error", err)
	}
}

// invalidate rotates the version token, then drops the entry. Rows cached
// later by a read that started earlier carry the old token and are ignored.
func (s *RaffleService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	ttl := s.cacheTTL * 2
	if ttl < minVersionTTL {
		ttl = minVersionTTL
	}
	if err := s.cache.Set(ctx, AssignmentsVersionKey, []byte(uuid.NewString()), ttl); err != nil {
		s.log.Warn("failed to rotate assignment cache version", "error", err)
	}
	if err := s.cache.Delete(ctx, AssignmentsCacheKey); err != nil {
		s.log.Warn("failed to invalidate assignment cache", "error", err)
	}
}

// publish hands every pairing to the notification queue. The assignment is
// already committed, so failures are logged and not returned.
func (s *RaffleService) publish(ctx context.Context, generationID uuid.UUID, pairings []models.Pairing) {
	if s.queue == nil {
		return
	}

	for _, p := range pairings {
		payload, err := json.Marshal(models.NewAssignmentEvent(generationID, p))
		if err != nil {
			s.log.Error("failed to encode assignment event", "giver_id", p.Giver.ID, "error", err)
			continue
		}
		key := fmt.Sprintf("%d", p.Giver.ID)
		if err := s.queue.Publish(ctx, AssignmentsTopic, key, payload); err != nil {
			s.log.Warn("failed to publish assignment event", "giver_id", p.Giver.ID, "error", err)
		}
	}
}
