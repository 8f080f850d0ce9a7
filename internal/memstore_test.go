package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isConflict(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.kind == errConflict
}

func TestConcurrentStrikesCapAtMax(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "m1", "Member", "")
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	increments := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, inc, err := s.AddStrike(ctx, "m1", StaffNote{
				Text:    fmt.Sprintf("strike %d", n),
				AddedBy: "a1",
				AddedAt: time.Now().UTC(),
			})
			assert.NoError(t, err)
			increments <- inc
		}(i)
	}
	wg.Wait()
	close(increments)

	applied := 0
	for inc := range increments {
		if inc {
			applied++
		}
	}
	assert.Equal(t, maxStrikes, applied, "exactly %d increments may land", maxStrikes)

	u, err := s.GetUser(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, maxStrikes, u.Strikes)
	assert.Len(t, u.Notes, workers, "every attempt leaves a note")
}

func TestConcurrentDuplicatePendingApplication(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "alice", "Alice", "")
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- s.CreateApplication(ctx, Application{
				ID:                fmt.Sprintf("app-%d", n),
				UserID:            "alice",
				ApplicationTypeID: "type-whitelist",
				Status:            AppPending,
				SubmittedAt:       time.Now().UTC(),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.True(t, isConflict(err), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created, "only one pending application per type may exist")
}

func TestReviewApplicationSingleWinner(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	require.NoError(t, s.CreateApplication(ctx, Application{
		ID:          "app-1",
		UserID:      "alice",
		Status:      AppPending,
		SubmittedAt: time.Now().UTC(),
	}))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.ReviewApplication(ctx, "app-1", AppApproved, fmt.Sprintf("admin-%d", n))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one reviewer may decide")
}

func TestAssignMemberIsExclusive(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "m1", "Member", "")
	require.NoError(t, err)
	require.NoError(t, s.CreateTeam(ctx, StaffTeam{ID: "t1", Name: "Alpha"}))
	require.NoError(t, s.CreateTeam(ctx, StaffTeam{ID: "t2", Name: "Beta"}))

	require.NoError(t, s.AssignMember(ctx, "t1", "m1"))
	require.NoError(t, s.AssignMember(ctx, "t2", "m1"))

	t1, err := s.GetTeam(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, t1.Members)
	t2, err := s.GetTeam(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, t2.Members)

	u, err := s.GetUser(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "t2", u.TeamID)
}

func TestAuditNewestFirstAndLimited(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendAudit(ctx, AuditEntry{
			ActorID: "a1",
			Action:  fmt.Sprintf("action-%d", i),
		}))
	}

	entries, err := s.ListAudit(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "action-4", entries[0].Action)
	assert.Equal(t, "action-2", entries[2].Action)
}
