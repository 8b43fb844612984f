package schedule

import (
	"testing"

	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/pool"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		pool   pool.Pool
		want   Step
		wantOK bool
	}{
		{
			name:   "frequency enum",
			pool:   pool.Pool{ServiceFrequency: null.StringFrom(pool.FreqQuarterly)},
			want:   Step{Months: 3},
			wantOK: true,
		},
		{
			name:   "twice monthly is a 14-day step",
			pool:   pool.Pool{ServiceFrequency: null.StringFrom(pool.FreqTwiceMonthly)},
			want:   Step{Days: 14},
			wantOK: true,
		},
		{
			name: "explicit interval wins over enum",
			pool: pool.Pool{
				ServiceFrequency:    null.StringFrom(pool.FreqMonthly),
				ServiceIntervalDays: null.IntFrom(10),
			},
			want:   Step{Days: 10},
			wantOK: true,
		},
		{
			name: "zero interval falls back to enum",
			pool: pool.Pool{
				ServiceFrequency:    null.StringFrom(pool.FreqWeekly),
				ServiceIntervalDays: null.IntFrom(0),
			},
			want:   Step{Days: 7},
			wantOK: true,
		},
		{
			name: "suspended pool has no schedule",
			pool: pool.Pool{
				ServiceFrequency: null.StringFrom(pool.FreqWeekly),
				ServiceSuspended: true,
			},
		},
		{name: "no driver"},
		{
			name: "unknown enum value",
			pool: pool.Pool{ServiceFrequency: null.StringFrom("fortnightly")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.pool)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Resolve() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
