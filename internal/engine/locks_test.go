package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillworks/till/internal/pos"
	"github.com/tillworks/till/internal/testutil"
)

func TestLockTable_SerializesSameID(t *testing.T) {
	table := newLockTable()
	id := uuid.New()

	var (
		mu      sync.Mutex
		holders int
		max     int
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := table.Lock(id)
			defer unlock()

			mu.Lock()
			holders++
			if holders > max {
				max = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "at most one holder per id")
}

func TestLockTable_ReleasesEntries(t *testing.T) {
	table := newLockTable()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		id := uuid.New()
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := table.Lock(id)
			unlock()
		}()
	}
	wg.Wait()

	table.mu.Lock()
	defer table.mu.Unlock()
	assert.Empty(t, table.locks, "entries must be reclaimed after the last release")
}

func TestLockTable_IndependentIDsDoNotBlock(t *testing.T) {
	table := newLockTable()

	unlockA := table.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := table.Lock(uuid.New())
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on an unrelated id blocked")
	}
}

// Two cashiers hammering the close button: exactly one close wins, the
// rest see INVALID_STATE, and the winner's payment is the only one stored.
func TestConcurrentClose_ExactlyOneWinner(t *testing.T) {
	s := testutil.OpenStore(t)
	e := New(s)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	txn, err := e.CreateTransaction(ctx, "")
	require.NoError(t, err)
	_, _, err = e.AddLine(ctx, txn.ID, item.ID, 2)
	require.NoError(t, err)

	const attempts = 8
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CloseTransaction(ctx, txn.ID, testutil.Money(t, "10.00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, rejections int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case pos.IsInvalidState(err):
			rejections++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, rejections)

	got, err := e.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusClosed, got.Status)
	require.NotNil(t, got.Payment)
	assert.True(t, got.Payment.Change.Equal(testutil.Money(t, "5.00")))
}

// Readers must never see a transaction whose stored total disagrees with
// its lines, even while line mutations commit concurrently.
func TestGetTransaction_ConsistentWhileLinesLand(t *testing.T) {
	s := testutil.OpenStore(t)
	e := New(s)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	txn, err := e.CreateTransaction(ctx, "")
	require.NoError(t, err)

	done := make(chan struct{})
	addErr := make(chan error, 1)
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if _, _, err := e.AddLine(ctx, txn.ID, item.ID, 1); err != nil {
				addErr <- err
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		got, err := e.GetTransaction(ctx, txn.ID)
		require.NoError(t, err)

		sum := testutil.Money(t, "0")
		for _, line := range got.Lines {
			sum = sum.Add(line.TotalPrice)
		}
		assert.True(t, got.Total.Equal(sum),
			"total %s != line sum %s over %d lines", got.Total, sum, len(got.Lines))
	}

	<-done
	select {
	case err := <-addErr:
		t.Fatalf("concurrent add failed: %v", err)
	default:
	}

	got, err := e.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 20)
	assert.True(t, got.Total.Equal(testutil.Money(t, "50.00")))
}

func TestConcurrentAddLines_AllLand(t *testing.T) {
	s := testutil.OpenStore(t)
	e := New(s)
	ctx := context.Background()

	category := testutil.SeedCategory(t, s, "Coffee")
	item := testutil.SeedItem(t, s, category.ID, "Espresso", "2.50")

	txn, err := e.CreateTransaction(ctx, "")
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.AddLine(ctx, txn.ID, item.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := e.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, workers)
	assert.True(t, got.Total.Equal(testutil.Money(t, "25.00")), "total = %s", got.Total)
}
