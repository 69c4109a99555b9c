package record_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"obbycal/internal/record"
)

func Test_SimpleCompletion_Applies_To_Every_Occurrence(t *testing.T) {
	t.Parallel()

	done := record.SimpleCompletion(true)
	require.True(t, done.CompletedOn("2024-01-01"))
	require.True(t, done.CompletedOn("2099-12-31"))

	open := record.SimpleCompletion(false)
	require.False(t, open.CompletedOn("2024-01-01"))
}

func Test_WithOccurrence_Migrates_And_Tracks_Dates(t *testing.T) {
	t.Parallel()

	state := record.SimpleCompletion(false)

	state = state.WithOccurrence("2024-02-05", true)
	require.True(t, state.PerOccurrence)
	require.Equal(t, []string{"2024-02-05"}, state.Dates)
	require.True(t, state.CompletedOn("2024-02-05"))
	require.False(t, state.CompletedOn("2024-02-12"))

	state = state.WithOccurrence("2024-01-29", true)
	require.Equal(t, []string{"2024-01-29", "2024-02-05"}, state.Dates)
}

func Test_WithOccurrence_Untoggle_Leaves_Empty_Set_Not_Nil(t *testing.T) {
	t.Parallel()

	state := record.SimpleCompletion(false).
		WithOccurrence("2024-02-05", true).
		WithOccurrence("2024-02-05", false)

	require.True(t, state.PerOccurrence)
	require.NotNil(t, state.Dates)
	require.Empty(t, state.Dates)
}

func Test_WithOccurrence_Is_Idempotent(t *testing.T) {
	t.Parallel()

	once := record.SimpleCompletion(false).WithOccurrence("2024-02-05", true)
	twice := once.WithOccurrence("2024-02-05", true)
	require.Equal(t, once.Dates, twice.Dates)

	neverSet := record.PerOccurrenceCompletion(nil).WithOccurrence("2024-02-05", false)
	require.Empty(t, neverSet.Dates)
}

func Test_ToPerOccurrence_Discards_The_Legacy_Flag(t *testing.T) {
	t.Parallel()

	migrated := record.SimpleCompletion(true).ToPerOccurrence()
	require.True(t, migrated.PerOccurrence)
	require.Empty(t, migrated.Dates)
	// The old "everything done" flag does not carry over.
	require.False(t, migrated.CompletedOn("2024-01-01"))
}
