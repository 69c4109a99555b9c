package record_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"obbycal/internal/record"
)

func Test_ParseDate_Accepts_Civil_Dates(t *testing.T) {
	t.Parallel()

	d, err := record.ParseDate("2024-02-29")
	require.NoError(t, err)
	require.Equal(t, record.Date{Year: 2024, Month: time.February, Day: 29}, d)
	require.Equal(t, "2024-02-29", d.String())
}

func Test_ParseDate_Rejects_Malformed_Input(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "2024-13-01", "01/02/2024", "2024-02-30", "tomorrow"} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			_, err := record.ParseDate(input)
			var malformed *record.MalformedDateError
			require.ErrorAs(t, err, &malformed)
		})
	}
}

func Test_ParseDateTime_Handles_Optional_Time(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    record.DateTime
		wantErr bool
	}{
		{
			name:  "DateOnly",
			input: "2024-01-05",
			want: record.DateTime{
				Date: record.Date{Year: 2024, Month: time.January, Day: 5},
			},
		},
		{
			name:  "DateWithTime",
			input: "2024-01-05T09:30",
			want: record.DateTime{
				Date:    record.Date{Year: 2024, Month: time.January, Day: 5},
				HasTime: true,
				Time:    record.TimeOfDay{Hour: 9, Minute: 30},
			},
		},
		{
			name:  "SecondsIgnored",
			input: "2024-01-05T09:30:45",
			want: record.DateTime{
				Date:    record.Date{Year: 2024, Month: time.January, Day: 5},
				HasTime: true,
				Time:    record.TimeOfDay{Hour: 9, Minute: 30},
			},
		},
		{
			name:    "GarbageTime",
			input:   "2024-01-05Tnoon",
			wantErr: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := record.ParseDateTime(testCase.input)
			if testCase.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, testCase.want, got)
		})
	}
}

func Test_DateTime_IsZero_Follows_The_Date_Component(t *testing.T) {
	t.Parallel()

	require.True(t, record.DateTime{}.IsZero())
	require.False(t, record.DateTime{
		Date: record.Date{Year: 2024, Month: time.May, Day: 2},
	}.IsZero())
}

func Test_Date_Arithmetic_Crosses_Month_And_Year_Boundaries(t *testing.T) {
	t.Parallel()

	d := record.Date{Year: 2023, Month: time.December, Day: 31}
	require.Equal(t, record.Date{Year: 2024, Month: time.January, Day: 1}, d.AddDays(1))

	require.Equal(t, 1, d.AddDays(1).DaysSince(d))
	require.Equal(t, 31, record.Date{Year: 2024, Month: time.January, Day: 31}.DaysSince(d))
}

func Test_WeekOfMonth_Matches_Seven_Day_Buckets(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		day  int
		want int
	}{
		{1, 1}, {7, 1}, {8, 2}, {14, 2}, {15, 3}, {28, 4}, {29, 5}, {31, 5},
	}
	for _, testCase := range testCases {
		d := record.Date{Year: 2024, Month: time.January, Day: testCase.day}
		require.Equal(t, testCase.want, d.WeekOfMonth(), "day %d", testCase.day)
	}
}

func Test_TimeOfDay_Parsing_And_Ordering(t *testing.T) {
	t.Parallel()

	tod, err := record.ParseTimeOfDay("09:05")
	require.NoError(t, err)
	require.Equal(t, record.TimeOfDay{Hour: 9, Minute: 5}, tod)
	require.Equal(t, "09:05", tod.String())
	require.Equal(t, 545, tod.Minutes())

	withSeconds, err := record.ParseTimeOfDay("09:05:59")
	require.NoError(t, err)
	require.Equal(t, tod, withSeconds)

	_, err = record.ParseTimeOfDay("25:00")
	require.Error(t, err)
}
