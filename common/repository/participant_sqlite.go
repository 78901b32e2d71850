package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lyzr/raffle/common/db"
	"github.com/lyzr/raffle/common/models"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteParticipantRepository handles participant persistence in SQLite
type SQLiteParticipantRepository struct {
	db   *db.SQLite
	q    sqlQuerier
	inTx bool
	now  func() time.Time
}

// NewSQLiteParticipantRepository creates a new participant repository
func NewSQLiteParticipantRepository(database *db.SQLite) *SQLiteParticipantRepository {
	return &SQLiteParticipantRepository{
		db:  database,
		q:   database.DB,
		now: time.Now,
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Create inserts a new participant
func (r *SQLiteParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	now := r.now().UTC()
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO participant (name, contact, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		p.Name, p.Contact, toMillis(now), toMillis(now),
	)
	if err != nil {
		return translateSQLiteErr("create participant", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return storeErr("read participant id", err)
	}

	p.ID = id
	p.RecipientID = nil
	p.CreatedAt = fromMillis(toMillis(now))
	p.UpdatedAt = p.CreatedAt
	return nil
}

// GetByID retrieves a participant by id
func (r *SQLiteParticipantRepository) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, contact, recipient_id, created_at, updated_at
		FROM participant
		WHERE id = ?`, id)

	p, err := scanParticipant(row)
	if err != nil {
		return nil, translateSQLiteErr("get participant", err)
	}
	return p, nil
}

// List retrieves all participants
func (r *SQLiteParticipantRepository) List(ctx context.Context) ([]*models.Participant, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, contact, recipient_id, created_at, updated_at
		FROM participant
		ORDER BY id ASC`)
	if err != nil {
		return nil, storeErr("list participants", err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
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
func (r *SQLiteParticipantRepository) Update(ctx context.Context, p *models.Participant) error {
	now := r.now()
	result, err := r.q.ExecContext(ctx,
		`UPDATE participant SET name = ?, contact = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Contact, toMillis(now), p.ID,
	)
	if err != nil {
		return translateSQLiteErr("update participant", err)
	}

	if err := requireRow(result, "update participant"); err != nil {
		return err
	}

	current, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *current
	return nil
}

// Delete removes a participant
func (r *SQLiteParticipantRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM participant WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete participant", err)
	}
	return requireRow(result, "delete participant")
}

// SetRecipient records the assignment giverID -> recipientID
func (r *SQLiteParticipantRepository) SetRecipient(ctx context.Context, giverID, recipientID int64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE participant SET recipient_id = ?, updated_at = ? WHERE id = ?`,
		recipientID, toMillis(r.now()), giverID,
	)
	if err != nil {
		return storeErr("set recipient", err)
	}
	return requireRow(result, "set recipient")
}

// AssignmentRows resolves every giver's recipient with a self left join
func (r *SQLiteParticipantRepository) AssignmentRows(ctx context.Context) ([]models.AssignmentRow, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT g.name, g.contact, rc.name, rc.contact
		FROM participant g
		LEFT JOIN participant rc ON rc.id = g.recipient_id
		ORDER BY g.name COLLATE BINARY ASC, g.id ASC`)
	if err != nil {
		return nil, storeErr("query assignments", err)
	}
	defer rows.Close()

	result := make([]models.AssignmentRow, 0)
	for rows.Next() {
		var (
			row              models.AssignmentRow
			recipientName    sql.NullString
			recipientContact sql.NullString
		)
		if err := rows.Scan(&row.GiverName, &row.GiverContact, &recipientName, &recipientContact); err != nil {
			return nil, storeErr("scan assignment", err)
		}
		if recipientName.Valid {
			row.RecipientName = &recipientName.String
		}
		if recipientContact.Valid {
			row.RecipientContact = &recipientContact.String
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate assignments", err)
	}

	return result, nil
}

// InTx runs fn inside a transaction. Nested calls reuse the open one.
func (r *SQLiteParticipantRepository) InTx(ctx context.Context, fn func(tx ParticipantStore) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}

	if err := fn(&SQLiteParticipantRepository{db: r.db, q: tx, inTx: true, now: r.now}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}

	return nil
}

// Health pings the database
func (r *SQLiteParticipantRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Close closes the database
func (r *SQLiteParticipantRepository) Close() {
	r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var (
		p           models.Participant
		recipientID sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Contact, &recipientID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if recipientID.Valid {
		id := recipientID.Int64
		p.RecipientID = &id
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func requireRow(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func translateSQLiteErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3lib.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")) {
			return ErrDuplicateContact
		}
	}

	return storeErr(op, err)
}

var _ ParticipantStore = (*SQLiteParticipantRepository)(nil)
