package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tradementor/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) *JournalStore {
	t.Helper()
	s, err := NewJournalStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry(userID string, date time.Time) *types.JournalEntry {
	return &types.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Emotions:  "calm",
		CreatedAt: date,
	}
}

func TestStoreInitializes(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats["journal_entries"])
	assert.Equal(t, 0, stats["journal_goals"])
	assert.Equal(t, 0, stats["journal_checkins"])
}

func TestCreateAndListEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := testEntry("u1", time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC))
	e.Market = "BTC ranged all day"
	e.Mistakes = "entered without confirmation"
	e.Tags = []string{"patience", "FOMO"}
	r := 1.5
	e.Trades = []types.Trade{{Symbol: "BTC", Direction: types.DirectionLong, R: &r}}
	require.NoError(t, s.CreateEntry(ctx, e))

	entries, err := s.ListEntries(ctx, "u1", types.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "BTC ranged all day", got.Market)
	assert.Equal(t, "entered without confirmation", got.Mistakes)
	assert.Equal(t, []string{"patience", "FOMO"}, got.Tags)
	require.Len(t, got.Trades, 1)
	require.NotNil(t, got.Trades[0].R)
	assert.Equal(t, 1.5, *got.Trades[0].R)
	assert.True(t, got.Date.Equal(e.Date))
}

func TestListEntriesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateEntry(ctx, testEntry("u1", base.AddDate(0, 0, i))))
	}

	entries, err := s.ListEntries(ctx, "u1", types.EntryFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2024-01-05", entries[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2024-01-03", entries[2].Date.Format("2006-01-02"))
}

func TestListEntriesDateBoundsInclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	onFrom := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	onTo := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateEntry(ctx, testEntry("u1", onFrom)))
	require.NoError(t, s.CreateEntry(ctx, testEntry("u1", onTo)))
	require.NoError(t, s.CreateEntry(ctx, testEntry("u1", onFrom.AddDate(0, 0, -1))))
	require.NoError(t, s.CreateEntry(ctx, testEntry("u1", onTo.AddDate(0, 0, 1))))

	entries, err := s.ListEntries(ctx, "u1", types.EntryFilter{From: &onFrom, To: &onTo})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListEntriesTagFilterCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tagged := testEntry("u1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tagged.Tags = []string{"Patience"}
	require.NoError(t, s.CreateEntry(ctx, tagged))
	require.NoError(t, s.CreateEntry(ctx, testEntry("u1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))))

	entries, err := s.ListEntries(ctx, "u1", types.EntryFilter{Tag: "patience"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, tagged.ID, entries[0].ID)
}

func TestListEntriesScopedByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEntry(ctx, testEntry("u1", time.Now().UTC())))

	entries, err := s.ListEntries(ctx, "u2", types.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGoalLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	goal := &types.JournalGoal{
		ID:        uuid.NewString(),
		UserID:    "u1",
		Text:      "risk at most 1% per trade",
		Due:       &due,
		Status:    types.GoalActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateGoal(ctx, goal))

	found, count, err := s.FindActiveGoal(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, count)
	assert.Equal(t, goal.Text, found.Text)
	require.NotNil(t, found.Due)
	assert.True(t, found.Due.Equal(due))

	require.NoError(t, s.UpdateGoalProgress(ctx, goal.ID, 100, types.GoalCompleted))

	found, count, err = s.FindActiveGoal(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Zero(t, count)

	goals, err := s.ListGoalsWithCheckIns(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, types.GoalCompleted, goals[0].Goal.Status)
	assert.Equal(t, 100, goals[0].Goal.Progress)
}

func TestFindActiveGoalReturnsNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := &types.JournalGoal{
		ID: uuid.NewString(), UserID: "u1", Text: "old",
		Status: types.GoalActive, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	recent := &types.JournalGoal{
		ID: uuid.NewString(), UserID: "u1", Text: "recent",
		Status: types.GoalActive, CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateGoal(ctx, old))
	require.NoError(t, s.CreateGoal(ctx, recent))

	found, count, err := s.FindActiveGoal(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 2, count)
	assert.Equal(t, "recent", found.Text)
}

func TestUpdateGoalProgressUnknownID(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateGoalProgress(context.Background(), "no-such-goal", 50, types.GoalActive)
	assert.Error(t, err)
}

func TestCheckInsAttachToGoals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	goal := &types.JournalGoal{
		ID: uuid.NewString(), UserID: "u1", Text: "journal daily",
		Status: types.GoalActive, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateGoal(ctx, goal))

	score := 8
	ci := &types.JournalCheckIn{
		ID: uuid.NewString(), UserID: "u1", GoalID: goal.ID,
		Note: "40% there, score: 8", Score: &score, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateCheckIn(ctx, ci))

	goals, err := s.ListGoalsWithCheckIns(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Len(t, goals[0].CheckIns, 1)
	got := goals[0].CheckIns[0]
	assert.Equal(t, ci.Note, got.Note)
	require.NotNil(t, got.Score)
	assert.Equal(t, 8, *got.Score)
}

func TestDeleteGoalCascadesCheckIns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	goal := &types.JournalGoal{
		ID: uuid.NewString(), UserID: "u1", Text: "journal daily",
		Status: types.GoalActive, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateGoal(ctx, goal))
	require.NoError(t, s.CreateCheckIn(ctx, &types.JournalCheckIn{
		ID: uuid.NewString(), UserID: "u1", GoalID: goal.ID,
		Note: "halfway", CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeleteGoal(ctx, goal.ID))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats["journal_goals"])
	assert.Zero(t, stats["journal_checkins"], "check-ins must cascade with their goal")
}

func TestCreateCheckInRejectsUnknownGoal(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateCheckIn(context.Background(), &types.JournalCheckIn{
		ID: uuid.NewString(), UserID: "u1", GoalID: "no-such-goal",
		CreatedAt: time.Now().UTC(),
	})
	assert.Error(t, err, "foreign key enforcement should reject orphan check-ins")
}
