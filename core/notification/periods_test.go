package notification

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/pool"
)

func TestFrequencyFor(t *testing.T) {
	tests := []struct {
		name   string
		pool   pool.Pool
		want   string
		wantOK bool
	}{
		{
			"enum wins over interval",
			pool.Pool{ServiceFrequency: null.StringFrom(pool.FreqMonthly), ServiceIntervalDays: null.IntFrom(10)},
			pool.FreqMonthly, true,
		},
		{"interval 7 is weekly", pool.Pool{ServiceIntervalDays: null.IntFrom(7)}, pool.FreqWeekly, true},
		{"interval 8 is twice monthly", pool.Pool{ServiceIntervalDays: null.IntFrom(8)}, pool.FreqTwiceMonthly, true},
		{"interval 15 is twice monthly", pool.Pool{ServiceIntervalDays: null.IntFrom(15)}, pool.FreqTwiceMonthly, true},
		{"interval 16 is monthly", pool.Pool{ServiceIntervalDays: null.IntFrom(16)}, pool.FreqMonthly, true},
		{"interval 45 is bimonthly", pool.Pool{ServiceIntervalDays: null.IntFrom(45)}, pool.FreqBimonthly, true},
		{"interval 90 is quarterly", pool.Pool{ServiceIntervalDays: null.IntFrom(90)}, pool.FreqQuarterly, true},
		{"interval 180 is twice yearly", pool.Pool{ServiceIntervalDays: null.IntFrom(180)}, pool.FreqTwiceYearly, true},
		{"interval 365 is yearly", pool.Pool{ServiceIntervalDays: null.IntFrom(365)}, pool.FreqYearly, true},
		{"no driver", pool.Pool{}, "", false},
		{"zero interval", pool.Pool{ServiceIntervalDays: null.IntFrom(0)}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := frequencyFor(tt.pool)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("frequencyFor() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPeriodBounds(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	tests := []struct {
		name      string
		today     time.Time
		frequency string
		start     time.Time
		end       time.Time
		key       string
	}{
		{"weekly", day(2026, 9, 16), pool.FreqWeekly, day(2026, 9, 14), day(2026, 9, 20), "2026-W38"},
		{"first half of the month", day(2026, 9, 15), pool.FreqTwiceMonthly, day(2026, 9, 1), day(2026, 9, 15), "2026-09-H1"},
		{"second half of the month", day(2026, 9, 16), pool.FreqTwiceMonthly, day(2026, 9, 16), day(2026, 9, 30), "2026-09-H2"},
		{"monthly", day(2026, 9, 16), pool.FreqMonthly, day(2026, 9, 1), day(2026, 9, 30), "2026-09"},
		{"bimonthly", day(2026, 9, 16), pool.FreqBimonthly, day(2026, 9, 1), day(2026, 10, 31), "2026-B09"},
		{"quarterly", day(2026, 9, 16), pool.FreqQuarterly, day(2026, 7, 1), day(2026, 9, 30), "2026-Q3"},
		{"twice yearly", day(2026, 9, 16), pool.FreqTwiceYearly, day(2026, 7, 1), day(2026, 12, 31), "2026-H2"},
		{"yearly", day(2026, 9, 16), pool.FreqYearly, day(2026, 1, 1), day(2026, 12, 31), "2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, key, ok := periodBounds(tt.today, tt.frequency)
			if !ok {
				t.Fatal("periodBounds() not ok")
			}
			if !start.Equal(tt.start) || !end.Equal(tt.end) {
				t.Errorf("bounds = [%v, %v], want [%v, %v]", start, end, tt.start, tt.end)
			}
			if key != tt.key {
				t.Errorf("key = %q, want %q", key, tt.key)
			}
		})
	}

	t.Run("unknown frequency", func(t *testing.T) {
		if _, _, _, ok := periodBounds(day(2026, 9, 16), "fortnightly"); ok {
			t.Error("periodBounds() ok for unknown frequency")
		}
	})
}
