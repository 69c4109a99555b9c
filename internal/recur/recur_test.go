package recur_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"obbycal/internal/record"
	"obbycal/internal/recur"
)

func date(y int, m time.Month, d int) record.Date {
	return record.Date{Year: y, Month: m, Day: d}
}

func januaryWindow() recur.Window {
	return recur.Window{Start: date(2024, time.January, 1), End: date(2024, time.January, 31)}
}

func Test_Expand_Weekly_Yields_Every_Matching_Weekday(t *testing.T) {
	t.Parallel()

	// 2024-01-01 is a Monday.
	rule := &record.Recurrence{
		Days:  []time.Weekday{time.Monday, time.Wednesday},
		Start: date(2024, time.January, 1),
	}
	win := recur.Window{Start: date(2024, time.January, 1), End: date(2024, time.January, 15)}

	got := recur.Dates(rule, win)

	want := []record.Date{
		date(2024, time.January, 1),
		date(2024, time.January, 3),
		date(2024, time.January, 8),
		date(2024, time.January, 10),
		date(2024, time.January, 15),
	}
	require.Empty(t, cmp.Diff(want, got))
}

func Test_Expand_BiMonthly_Alternates_Weeks_From_Rule_Start(t *testing.T) {
	t.Parallel()

	rule := &record.Recurrence{
		Days:    []time.Weekday{time.Monday, time.Wednesday},
		Start:   date(2024, time.January, 1),
		Pattern: record.PatternBiMonthly,
	}
	win := recur.Window{Start: date(2024, time.January, 1), End: date(2024, time.January, 15)}

	got := recur.Dates(rule, win)

	// Week 0 (Jan 1-7) is on, week 1 (Jan 8-14) is off, week 2 is on again.
	want := []record.Date{
		date(2024, time.January, 1),
		date(2024, time.January, 3),
		date(2024, time.January, 15),
	}
	require.Empty(t, cmp.Diff(want, got))
}

func Test_Expand_BiMonthly_Is_Anchored_On_The_Rule_Start(t *testing.T) {
	t.Parallel()

	// Same day set, start shifted one week: the on/off phase flips.
	rule := &record.Recurrence{
		Days:    []time.Weekday{time.Monday},
		Start:   date(2024, time.January, 8),
		Pattern: record.PatternBiMonthly,
	}

	got := recur.Dates(rule, januaryWindow())

	want := []record.Date{
		date(2024, time.January, 8),
		date(2024, time.January, 22),
	}
	require.Empty(t, cmp.Diff(want, got))
}

func Test_Expand_Monthly_Yields_One_Occurrence_Per_Month(t *testing.T) {
	t.Parallel()

	// First Wednesday of each month: start is 2024-01-03, week-of-month 1.
	rule := &record.Recurrence{
		Days:    []time.Weekday{time.Wednesday},
		Start:   date(2024, time.January, 3),
		Pattern: record.PatternMonthly,
	}
	win := recur.Window{Start: date(2024, time.January, 1), End: date(2024, time.March, 31)}

	got := recur.Dates(rule, win)

	want := []record.Date{
		date(2024, time.January, 3),
		date(2024, time.February, 7),
		date(2024, time.March, 6),
	}
	require.Empty(t, cmp.Diff(want, got))
}

func Test_Expand_Clamps_To_Window_And_Rule_Range(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		rule record.Recurrence
		win  recur.Window
		want []record.Date
	}{
		{
			name: "RuleStartInsideWindow",
			rule: record.Recurrence{
				Days:  []time.Weekday{time.Friday},
				Start: date(2024, time.January, 15),
			},
			win: januaryWindow(),
			want: []record.Date{
				date(2024, time.January, 19),
				date(2024, time.January, 26),
			},
		},
		{
			name: "RuleEndInsideWindow",
			rule: record.Recurrence{
				Days:  []time.Weekday{time.Friday},
				Start: date(2024, time.January, 1),
				End:   date(2024, time.January, 14),
			},
			win: januaryWindow(),
			want: []record.Date{
				date(2024, time.January, 5),
				date(2024, time.January, 12),
			},
		},
		{
			name: "RuleEndOnOccurrenceIsInclusive",
			rule: record.Recurrence{
				Days:  []time.Weekday{time.Friday},
				Start: date(2024, time.January, 1),
				End:   date(2024, time.January, 12),
			},
			win: januaryWindow(),
			want: []record.Date{
				date(2024, time.January, 5),
				date(2024, time.January, 12),
			},
		},
		{
			name: "RuleEntirelyOutsideWindow",
			rule: record.Recurrence{
				Days:  []time.Weekday{time.Friday},
				Start: date(2024, time.March, 1),
			},
			win:  januaryWindow(),
			want: nil,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := recur.Dates(&testCase.rule, testCase.win)
			require.Empty(t, cmp.Diff(testCase.want, got))
		})
	}
}

func Test_Expand_Invalid_Rule_Yields_Nothing(t *testing.T) {
	t.Parallel()

	noDays := &record.Recurrence{Start: date(2024, time.January, 1)}
	require.Empty(t, recur.Dates(noDays, januaryWindow()))

	noStart := &record.Recurrence{Days: []time.Weekday{time.Monday}}
	require.Empty(t, recur.Dates(noStart, januaryWindow()))
}

func Test_Expand_Is_Restartable(t *testing.T) {
	t.Parallel()

	rule := &record.Recurrence{
		Days:  []time.Weekday{time.Monday},
		Start: date(2024, time.January, 1),
	}
	seq := recur.Expand(rule, januaryWindow())

	var first, second []record.Date
	for d := range seq {
		first = append(first, d)
	}
	for d := range seq {
		second = append(second, d)
	}
	require.Empty(t, cmp.Diff(first, second))
	require.Len(t, first, 5)
}
