package ics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"obbycal/internal/calendar"
	"obbycal/internal/config"
	"obbycal/internal/ics"
	"obbycal/internal/record"
	"obbycal/internal/recur"
)

const feedBody = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:single-1\r\n" +
	"SUMMARY:Dentist\r\n" +
	"DTSTART:20240110T090000Z\r\n" +
	"DTEND:20240110T093000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly-1\r\n" +
	"SUMMARY:Yoga\r\n" +
	"DTSTART:20240101T180000Z\r\n" +
	"DTEND:20240101T190000Z\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO\r\n" +
	"EXDATE:20240115T180000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func januaryWindow() recur.Window {
	return recur.Window{
		Start: record.Date{Year: 2024, Month: time.January, Day: 1},
		End:   record.Date{Year: 2024, Month: time.January, Day: 31},
	}
}

func Test_Import_Expands_Subscription_Events(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	im := &ics.Importer{Fetcher: ics.NewFetcher(t.TempDir())}
	subs := []config.ICSConfig{{ID: "gym", URL: srv.URL, Color: "#3a86ff"}}

	instances := im.Import(context.Background(), subs, januaryWindow())

	var single, weekly []calendar.Instance
	for _, inst := range instances {
		require.False(t, inst.Editable, "imported instances are read-only")
		require.Equal(t, "ics:gym", inst.SourceKey)
		require.Equal(t, "#3a86ff", inst.Color)
		switch inst.Title {
		case "Dentist":
			single = append(single, inst)
		case "Yoga":
			weekly = append(weekly, inst)
		}
	}

	require.Len(t, single, 1)
	require.True(t, single[0].Start.HasTime)

	// Mondays in January minus the EXDATE on the 15th: 1, 8, 22, 29.
	require.Len(t, weekly, 4)
	for _, inst := range weekly {
		require.NotEqual(t,
			record.Date{Year: 2024, Month: time.January, Day: 15},
			inst.Start.Date)
	}
}

func Test_Import_Serves_Cache_When_The_Feed_Is_Down(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	fetcher := ics.NewFetcher(t.TempDir())
	sub := config.ICSConfig{ID: "gym", URL: srv.URL}

	body, fromCache, err := fetcher.Fetch(context.Background(), sub)
	require.NoError(t, err)
	require.False(t, fromCache)
	require.Equal(t, feedBody, string(body))

	fail.Store(true)
	body, fromCache, err = fetcher.Fetch(context.Background(), sub)
	require.NoError(t, err)
	require.True(t, fromCache)
	require.Equal(t, feedBody, string(body))
}

func Test_Import_Skips_Broken_Subscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not a calendar"))
	}))
	defer srv.Close()

	im := &ics.Importer{Fetcher: ics.NewFetcher(t.TempDir())}
	subs := []config.ICSConfig{
		{ID: "broken", URL: srv.URL},
		{ID: "unreachable", URL: "http://127.0.0.1:1/feed.ics"},
	}

	require.Empty(t, im.Import(context.Background(), subs, januaryWindow()))
}

func Test_Feed_Serializes_Instances(t *testing.T) {
	t.Parallel()

	instances := []calendar.Instance{
		{
			ID:    "work/Kickoff-2024-05-02.md",
			Title: "Kickoff",
			Start: record.DateTime{
				Date:    record.Date{Year: 2024, Month: time.May, Day: 2},
				HasTime: true,
				Time:    record.TimeOfDay{Hour: 14},
			},
		},
		{
			ID:     "work/Offsite-2024-05-03.md",
			Title:  "Offsite",
			AllDay: true,
			Start: record.DateTime{
				Date: record.Date{Year: 2024, Month: time.May, Day: 3},
			},
		},
	}

	out := string(ics.Feed("work", instances))
	require.Contains(t, out, "BEGIN:VCALENDAR")
	require.Contains(t, out, "SUMMARY:Kickoff")
	require.Contains(t, out, "SUMMARY:Offsite")
	require.Contains(t, out, "UID:work/Kickoff-2024-05-02.md")
	require.Contains(t, out, "END:VCALENDAR")
}
