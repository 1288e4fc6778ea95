package reminder

import (
	"database/sql"
	"testing"
	"time"
)

func recurring(rt RecurrenceType, clock, zone string) *Reminder {
	return &Reminder{
		TaskText:       "test",
		UserTimezone:   zone,
		RecurrenceType: rt,
		RecurrenceTime: sql.NullString{String: clock, Valid: clock != ""},
	}
}

func TestNextOccurrence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		r    *Reminder
		now  time.Time
		want time.Time
	}{
		{
			// 09:00 in Tashkent (UTC+5, no DST) is 04:00 UTC.
			name: "daily in user zone",
			r:    recurring(RecurrenceDaily, "09:00", "Asia/Tashkent"),
			now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly seven days ahead",
			r:    recurring(RecurrenceWeekly, "07:45", "UTC"),
			now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 17, 7, 45, 0, 0, time.UTC),
		},
		{
			// 2026-03-13 is a Friday; the weekend is skipped.
			name: "weekdays skip weekend",
			r:    recurring(RecurrenceWeekdays, "09:00", "Asia/Tashkent"),
			now:  time.Date(2026, 3, 13, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 16, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "weekdays midweek advances one day",
			r:    recurring(RecurrenceWeekdays, "08:30", "UTC"),
			now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 8, 30, 0, 0, time.UTC),
		},
		{
			name: "monthly same day next month",
			r:    recurring(RecurrenceMonthly, "08:00", "UTC"),
			now:  time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 5, 15, 8, 0, 0, 0, time.UTC),
		},
		{
			// Jan 31 -> February: day clamps to 28, never skips the month.
			name: "monthly clamps short month to day 28",
			r:    recurring(RecurrenceMonthly, "10:30", "UTC"),
			now:  time.Date(2026, 1, 31, 11, 0, 0, 0, time.UTC),
			want: time.Date(2026, 2, 28, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "monthly december rolls into next year",
			r:    recurring(RecurrenceMonthly, "09:00", "UTC"),
			now:  time.Date(2026, 12, 15, 12, 0, 0, 0, time.UTC),
			want: time.Date(2027, 1, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "malformed clock falls back to 09:00",
			r:    recurring(RecurrenceDaily, "late morning", "UTC"),
			now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "missing clock falls back to 09:00",
			r:    recurring(RecurrenceDaily, "", "UTC"),
			now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			// Unknown zone falls back to Asia/Tashkent rather than failing.
			name: "unloadable timezone uses fallback zone",
			r:    recurring(RecurrenceDaily, "09:00", "Mars/Olympus"),
			now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := NextOccurrence(c.r, c.now)
			if err != nil {
				t.Fatalf("NextOccurrence returned error: %v", err)
			}
			if !got.Equal(c.want) {
				t.Fatalf("NextOccurrence = %s, want %s", got, c.want)
			}
			if got.Location() != time.UTC {
				t.Fatalf("NextOccurrence returned non-UTC instant: %s", got)
			}
		})
	}
}

func TestNextOccurrenceNotRecurring(t *testing.T) {
	t.Parallel()
	r := &Reminder{TaskText: "one shot", UserTimezone: "UTC"}
	if _, err := NextOccurrence(r, time.Now().UTC()); err != ErrNotRecurring {
		t.Fatalf("expected ErrNotRecurring, got %v", err)
	}
}

func TestNextOccurrenceAlwaysInFuture(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	for _, rt := range []RecurrenceType{RecurrenceDaily, RecurrenceWeekly, RecurrenceWeekdays, RecurrenceMonthly} {
		got, err := NextOccurrence(recurring(rt, "09:00", "Asia/Tashkent"), now)
		if err != nil {
			t.Fatalf("NextOccurrence(%s) returned error: %v", rt, err)
		}
		if !got.After(now) {
			t.Errorf("NextOccurrence(%s) = %s, not after now %s", rt, got, now)
		}
	}
}
