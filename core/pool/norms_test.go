package pool_test

import (
	"reflect"
	"testing"

	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/pool"
)

func TestViolationsWithDefaults(t *testing.T) {
	limits := pool.Limits(nil)

	tests := []struct {
		name    string
		reading pool.WaterReading
		want    []string
	}{
		{
			"all in range",
			pool.WaterReading{PH: null.Float64From(7.2), ClFree: null.Float64From(0.8), ClTotal: null.Float64From(1.0)},
			nil,
		},
		{
			"high ph",
			pool.WaterReading{PH: null.Float64From(8.2)},
			[]string{"pH: 8.2 > 7.6"},
		},
		{
			"low free chlorine",
			pool.WaterReading{ClFree: null.Float64From(0.1)},
			[]string{"Free chlorine: 0.1 < 0.3"},
		},
		{
			"total chlorine has no lower bound",
			pool.WaterReading{ClTotal: null.Float64From(0)},
			nil,
		},
		{
			"several fields at once",
			pool.WaterReading{PH: null.Float64From(6.5), ClTotal: null.Float64From(2.5)},
			[]string{"pH: 6.5 < 7", "Total chlorine: 2.5 > 2"},
		},
		{
			"unset fields are skipped",
			pool.WaterReading{Temperature: null.Float64From(40)},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pool.Violations(tt.reading, limits)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Violations() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLimitsMergeOrgOverrides(t *testing.T) {
	// only the pH ceiling is overridden; the floor and the chlorine limits
	// fall through to the defaults
	norms := &pool.WaterNorms{PHMax: null.Float64From(8.0)}
	limits := pool.Limits(norms)

	if got := limits["ph"]; got.Max.Float64 != 8.0 || got.Min.Float64 != 7.0 {
		t.Errorf("ph limit = %+v, want min 7.0 max 8.0", got)
	}
	if got := limits["cl_free"]; got.Min.Float64 != 0.3 || got.Max.Float64 != 1.5 {
		t.Errorf("cl_free limit = %+v, want defaults", got)
	}

	r := pool.WaterReading{PH: null.Float64From(7.8)}
	if v := pool.Violations(r, limits); v != nil {
		t.Errorf("Violations() = %v, want none under the relaxed ceiling", v)
	}
	if v := pool.Violations(r, pool.Limits(nil)); len(v) != 1 {
		t.Errorf("Violations() = %v, want one under the defaults", v)
	}
}
