package stream

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lalith-99/disputedesk/internal/errs"
	"github.com/lalith-99/disputedesk/internal/locks"
	"github.com/lalith-99/disputedesk/internal/models"
	"github.com/lalith-99/disputedesk/internal/repository/memory"
)

type engineFixture struct {
	engine   *Engine
	tickets  *memory.TicketStore
	comments *memory.CommentStore
	bus      *MemoryBus
	author   *models.User
	ticketID uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	tickets := memory.NewTicketStore()
	comments := memory.NewCommentStore()
	bus := NewMemoryBus()
	engine := NewEngine(comments, tickets, bus, locks.New(), 5*time.Second, zap.NewNop())

	author := &models.User{ID: uuid.New(), Name: "Casey", Role: models.RoleClient}
	tk, err := tickets.Create(context.Background(), author.ID, "Billing", "overcharged", "Billing", "")
	require.NoError(t, err)

	return &engineFixture{
		engine:   engine,
		tickets:  tickets,
		comments: comments,
		bus:      bus,
		author:   author,
		ticketID: tk.ID,
	}
}

func TestAppend_AssignsSequentialSeq(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		cm, err := f.engine.Append(ctx, f.ticketID, f.author, fmt.Sprintf("comment %d", i), "")
		require.NoError(t, err)
		assert.Equal(t, int64(i), cm.Seq)
		assert.Equal(t, "Casey", cm.AuthorName)
	}
}

func TestAppend_EmptyBodyConsumesNoSeq(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := f.engine.Append(ctx, f.ticketID, f.author, body, "")
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.KindValidation))
	}

	cm, err := f.engine.Append(ctx, f.ticketID, f.author, "first real comment", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cm.Seq, "rejected bodies must not consume sequence numbers")
}

func TestAppend_UnknownTicket(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Append(context.Background(), uuid.New(), f.author, "hi", "")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestAppend_IdempotencyKeyReturnsExisting(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.engine.Append(ctx, f.ticketID, f.author, "retried message", "req-42")
	require.NoError(t, err)

	// A retried call with the same key returns the original comment and
	// consumes no new sequence number.
	second, err := f.engine.Append(ctx, f.ticketID, f.author, "retried message", "req-42")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Seq, second.Seq)

	last, err := f.comments.LastSeq(ctx, f.ticketID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), last)
}

func TestAppend_ConcurrentAppendsAreGapFree(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	const appends = 100
	var g errgroup.Group
	for i := 0; i < appends; i++ {
		i := i
		g.Go(func() error {
			_, err := f.engine.Append(ctx, f.ticketID, f.author, fmt.Sprintf("comment %d", i), "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	replayed, err := f.engine.Replay(ctx, f.ticketID, 0)
	require.NoError(t, err)
	require.Len(t, replayed, appends)

	for i, cm := range replayed {
		assert.Equal(t, int64(i+1), cm.Seq, "seq must be strictly increasing with no gaps")
	}
}

func TestAppend_IndependentTicketsHaveIndependentSeqs(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	other, err := f.tickets.Create(ctx, f.author.ID, "Other", "d", "Other", "")
	require.NoError(t, err)

	cm1, err := f.engine.Append(ctx, f.ticketID, f.author, "on first", "")
	require.NoError(t, err)
	cm2, err := f.engine.Append(ctx, other.ID, f.author, "on second", "")
	require.NoError(t, err)

	assert.Equal(t, int64(1), cm1.Seq)
	assert.Equal(t, int64(1), cm2.Seq)
}

func TestReplay_SinceSeq(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := f.engine.Append(ctx, f.ticketID, f.author, fmt.Sprintf("comment %d", i), "")
		require.NoError(t, err)
	}

	tail, err := f.engine.Replay(ctx, f.ticketID, 3)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(4), tail[0].Seq)
	assert.Equal(t, int64(5), tail[1].Seq)

	empty, err := f.engine.Replay(ctx, f.ticketID, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAppend_PublishesAfterPersisting(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	sub, err := f.engine.Subscribe(ctx, f.ticketID)
	require.NoError(t, err)
	defer sub.Close()

	appended, err := f.engine.Append(ctx, f.ticketID, f.author, "hello", "")
	require.NoError(t, err)

	select {
	case got := <-sub.Comments():
		assert.Equal(t, appended.Seq, got.Seq)
		assert.Equal(t, "hello", got.Body)
		assert.Equal(t, "Casey", got.AuthorName, "live events carry the author name")
	case <-time.After(time.Second):
		t.Fatal("expected live delivery of the appended comment")
	}

	// The comment an event announces is always already replayable.
	replayed, err := f.engine.Replay(ctx, f.ticketID, 0)
	require.NoError(t, err)
	require.Len(t, replayed, 1)
}
