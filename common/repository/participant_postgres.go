package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lyzr/raffle/common/db"
	"github.com/lyzr/raffle/common/models"
)

const pgUniqueViolation = "23505"

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresParticipantRepository handles participant persistence in Postgres
type PostgresParticipantRepository struct {
	db *db.DB
	q  pgQuerier
}

// NewPostgresParticipantRepository creates a new participant repository
func NewPostgresParticipantRepository(database *db.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{db: database, q: database.Pool}
}

// Create inserts a new participant
func (r *PostgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participant (name, contact)
		VALUES ($1, $2)
		RETURNING id, recipient_id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, p.Name, p.Contact).Scan(
		&p.ID,
		&p.RecipientID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return translatePgErr("create participant", err)
	}

	return nil
}

// GetByID retrieves a participant by id
func (r *PostgresParticipantRepository) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	query := `
		SELECT id, name, contact, recipient_id, created_at, updated_at
		FROM participant
		WHERE id = $1
	`

	p := &models.Participant{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Contact,
		&p.RecipientID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, translatePgErr("get participant", err)
	}

	return p, nil
}

// List retrieves all participants
func (r *PostgresParticipantRepository) List(ctx context.Context) ([]*models.Participant, error) {
	query := `
		SELECT id, name, contact, recipient_id, created_at, updated_at
		FROM participant
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, storeErr("list participants", err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Contact,
			&p.RecipientID,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, storeErr("scan participant", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate participants", err)
	}

	return participants, nil
}

// Update updates name and contact
func (r *PostgresParticipantRepository) Update(ctx context.Context, p *models.Participant) error {
	query := `
		UPDATE participant
		SET name = $2, contact = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING recipient_id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, p.ID, p.Name, p.Contact).Scan(
		&p.RecipientID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return translatePgErr("update participant", err)
	}

	return nil
}

// Delete removes a participant
func (r *PostgresParticipantRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM participant WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete participant", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetRecipient records the assignment giverID -> recipientID
func (r *PostgresParticipantRepository) SetRecipient(ctx context.Context, giverID, recipientID int64) error {
	query := `
		UPDATE participant
		SET recipient_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, giverID, recipientID)
	if err != nil {
		return storeErr("set recipient", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// AssignmentRows resolves every giver's recipient with a self left join
func (r *PostgresParticipantRepository) AssignmentRows(ctx context.Context) ([]models.AssignmentRow, error) {
	query := `
		SELECT g.name, g.contact, rc.name, rc.contact
		FROM participant g
		LEFT JOIN participant rc ON rc.id = g.recipient_id
		ORDER BY g.name COLLATE "C" ASC, g.id ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, storeErr("query assignments", err)
	}
	defer rows.Close()

	result := make([]models.AssignmentRow, 0)
	for rows.Next() {
		var row models.AssignmentRow
		if err := rows.Scan(
			&row.GiverName,
			&row.GiverContact,
			&row.RecipientName,
			&row.RecipientContact,
		); err != nil {
			return nil, storeErr("scan assignment", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate assignments", err)
	}

	return result, nil
}

// InTx runs fn inside a transaction (a savepoint when already in one)
func (r *PostgresParticipantRepository) InTx(ctx context.Context, fn func(tx ParticipantStore) error) error {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer func() {
		// no-op once committed
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&PostgresParticipantRepository{db: r.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit transaction", err)
	}

	return nil
}

// Health pings the pool
func (r *PostgresParticipantRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Close closes the pool
func (r *PostgresParticipantRepository) Close() {
	r.db.Close()
}

func translatePgErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateContact
	}

	return storeErr(op, err)
}

var _ ParticipantStore = (*PostgresParticipantRepository)(nil)
