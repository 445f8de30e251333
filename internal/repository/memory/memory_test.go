package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith-99/disputedesk/internal/models"
)

func TestTicketStore_SetStatusIsCompareAndSet(t *testing.T) {
	store := NewTicketStore()
	ctx := context.Background()

	tk, err := store.Create(ctx, uuid.New(), "t", "d", "c", "")
	require.NoError(t, err)

	// Wrong "from" state never applies.
	applied, err := store.SetStatus(ctx, tk.ID, models.StatusResolved, models.StatusPending)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = store.SetStatus(ctx, tk.ID, models.StatusPending, models.StatusResolved)
	require.NoError(t, err)
	assert.True(t, applied)

	// Second identical transition loses the compare.
	applied, err = store.SetStatus(ctx, tk.ID, models.StatusPending, models.StatusResolved)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestTicketStore_ConcurrentCASAppliesOnce(t *testing.T) {
	store := NewTicketStore()
	ctx := context.Background()

	tk, err := store.Create(ctx, uuid.New(), "t", "d", "c", "")
	require.NoError(t, err)

	const callers = 32
	wins := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := store.SetStatus(ctx, tk.ID, models.StatusPending, models.StatusResolved)
			assert.NoError(t, err)
			wins <- applied
		}()
	}
	wg.Wait()
	close(wins)

	applyCount := 0
	for applied := range wins {
		if applied {
			applyCount++
		}
	}
	assert.Equal(t, 1, applyCount, "exactly one caller performs the transition")
}

func TestCommentStore_RejectsDuplicateSeq(t *testing.T) {
	store := NewCommentStore()
	ctx := context.Background()
	ticketID := uuid.New()

	_, err := store.Append(ctx, ticketID, uuid.New(), "one", 1, "")
	require.NoError(t, err)

	_, err = store.Append(ctx, ticketID, uuid.New(), "dup", 1, "")
	assert.Error(t, err, "the (ticket, seq) uniqueness backstop must hold")
}

func TestCommentStore_IdempotencyKeyLookup(t *testing.T) {
	store := NewCommentStore()
	ctx := context.Background()
	ticketID := uuid.New()

	cm, err := store.Append(ctx, ticketID, uuid.New(), "hello", 1, "key-1")
	require.NoError(t, err)

	found, err := store.GetByIdempotencyKey(ctx, ticketID, "key-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, cm.ID, found.ID)

	missing, err := store.GetByIdempotencyKey(ctx, ticketID, "key-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Keys are scoped per ticket.
	otherTicket, err := store.GetByIdempotencyKey(ctx, uuid.New(), "key-1")
	require.NoError(t, err)
	assert.Nil(t, otherTicket)
}

func TestUserStore_EmailLookup(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "a@b.c", "A", "hash", models.RoleClient)
	require.NoError(t, err)

	found, err := store.GetByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	none, err := store.GetByEmail(ctx, "missing@b.c")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = store.Create(ctx, "a@b.c", "Dup", "hash", models.RoleClient)
	assert.Error(t, err)
}
