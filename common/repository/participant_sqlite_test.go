package repository

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/lyzr/raffle/common/db"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteParticipantRepository {
	t.Helper()
	log := logger.NewWithWriter(io.Discard, "error", "json")
	database, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "raffle.db"), log)
	require.NoError(t, err)
	store := NewSQLiteParticipantRepository(database)
	t.Cleanup(store.Close)
	return store
}

func mustCreate(t *testing.T, store ParticipantStore, name, contact string) *models.Participant {
	t.Helper()
	p := &models.Participant{Name: name, Contact: contact}
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

func TestSQLiteParticipantCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := mustCreate(t, store, "Alice", "alice@example.com")
	assert.NotZero(t, alice.ID)
	assert.Nil(t, alice.RecipientID)
	assert.False(t, alice.CreatedAt.IsZero())

	got, err := store.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "alice@example.com", got.Contact)

	got.Name = "Alice Liddell"
	require.NoError(t, store.Update(ctx, got))
	assert.Equal(t, "Alice Liddell", got.Name)

	bob := mustCreate(t, store, "Bob", "bob@example.com")
	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, alice.ID, all[0].ID)
	assert.Equal(t, bob.ID, all[1].ID)

	require.NoError(t, store.Delete(ctx, alice.ID))
	_, err = store.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteParticipantErrors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := mustCreate(t, store, "Alice", "alice@example.com")
	bob := mustCreate(t, store, "Bob", "bob@example.com")

	t.Run("duplicate contact on create", func(t *testing.T) {
		err := store.Create(ctx, &models.Participant{Name: "Other", Contact: "alice@example.com"})
		assert.ErrorIs(t, err, ErrDuplicateContact)
	})

	t.Run("duplicate contact on update", func(t *testing.T) {
		bob.Contact = alice.Contact
		err := store.Update(ctx, bob)
		assert.ErrorIs(t, err, ErrDuplicateContact)
	})

	t.Run("update keeps own contact", func(t *testing.T) {
		alice.Name = "Alice again"
		assert.NoError(t, store.Update(ctx, alice))
	})

	t.Run("missing ids", func(t *testing.T) {
		_, err := store.GetByID(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, 999), ErrNotFound)
		assert.ErrorIs(t, store.SetRecipient(ctx, 999, alice.ID), ErrNotFound)
		assert.ErrorIs(t, store.Update(ctx, &models.Participant{ID: 999, Name: "x", Contact: "x@example.com"}), ErrNotFound)
	})

	t.Run("closed database is a persistence failure", func(t *testing.T) {
		closed := newTestStore(t)
		closed.Close()
		_, err := closed.List(ctx)
		assert.ErrorIs(t, err, ErrPersistence)
		var storeFailure *StoreError
		assert.True(t, errors.As(err, &storeFailure))
		assert.Equal(t, "list participants", storeFailure.Op)
	})
}

func TestSQLiteAssignmentRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	carol := mustCreate(t, store, "carol", "carol@example.com")
	alice := mustCreate(t, store, "Alice", "alice@example.com")
	bob := mustCreate(t, store, "Bob", "bob@example.com")

	require.NoError(t, store.SetRecipient(ctx, alice.ID, bob.ID))
	require.NoError(t, store.SetRecipient(ctx, bob.ID, carol.ID))

	rows, err := store.AssignmentRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// byte order: upper case sorts before lower case
	assert.Equal(t, []string{"Alice", "Bob", "carol"}, []string{rows[0].GiverName, rows[1].GiverName, rows[2].GiverName})

	require.NotNil(t, rows[0].RecipientName)
	assert.Equal(t, "Bob", *rows[0].RecipientName)
	assert.Equal(t, "bob@example.com", *rows[0].RecipientContact)

	// unset recipient
	assert.Nil(t, rows[2].RecipientName)
	assert.Nil(t, rows[2].RecipientContact)

	t.Run("dangling reference resolves to nulls", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, carol.ID))

		rows, err := store.AssignmentRows(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Bob", rows[1].GiverName)
		assert.Nil(t, rows[1].RecipientName)
		assert.Nil(t, rows[1].RecipientContact)

		got, err := store.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		require.NotNil(t, got.RecipientID)
		assert.Equal(t, carol.ID, *got.RecipientID)
	})
}

func TestSQLiteInTx(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alice := mustCreate(t, store, "Alice", "alice@example.com")
	bob := mustCreate(t, store, "Bob", "bob@example.com")

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.InTx(ctx, func(tx ParticipantStore) error {
			require.NoError(t, tx.SetRecipient(ctx, alice.ID, bob.ID))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Nil(t, got.RecipientID)
	})

	t.Run("commit on success", func(t *testing.T) {
		err := store.InTx(ctx, func(tx ParticipantStore) error {
			if err := tx.SetRecipient(ctx, alice.ID, bob.ID); err != nil {
				return err
			}
			return tx.InTx(ctx, func(nested ParticipantStore) error {
				return nested.SetRecipient(ctx, bob.ID, alice.ID)
			})
		})
		require.NoError(t, err)

		got, err := store.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		require.NotNil(t, got.RecipientID)
		assert.Equal(t, alice.ID, *got.RecipientID)
	})
}
