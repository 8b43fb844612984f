package pool

import (
	"fmt"

	"github.com/volatiletech/null/v8"
)

// Water-quality fields subject to norm checks.
var readingLabels = []struct {
	field string
	label string
}{
	{"ph", "pH"},
	{"cl_free", "Free chlorine"},
	{"cl_total", "Total chlorine"},
}

// Limit is an inclusive [Min, Max] bound on one reading field; either side
// may be open.
type Limit struct {
	Min null.Float64
	Max null.Float64
}

// DefaultLimits are the built-in water-quality norms, applied when an
// organization has not configured its own.
var DefaultLimits = map[string]Limit{
	"ph":       {Min: null.Float64From(7.0), Max: null.Float64From(7.6)},
	"cl_free":  {Min: null.Float64From(0.3), Max: null.Float64From(1.5)},
	"cl_total": {Max: null.Float64From(2.0)},
}

// WaterNorms is an organization's override of the default limits.
// An unset side falls through to the default.
type WaterNorms struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`

	PHMin      null.Float64 `json:"ph_min"`
	PHMax      null.Float64 `json:"ph_max"`
	ClFreeMin  null.Float64 `json:"cl_free_min"`
	ClFreeMax  null.Float64 `json:"cl_free_max"`
	ClTotalMin null.Float64 `json:"cl_total_min"`
	ClTotalMax null.Float64 `json:"cl_total_max"`
}

func (n WaterNorms) limit(field string) (Limit, bool) {
	var lim Limit
	switch field {
	case "ph":
		lim = Limit{Min: n.PHMin, Max: n.PHMax}
	case "cl_free":
		lim = Limit{Min: n.ClFreeMin, Max: n.ClFreeMax}
	case "cl_total":
		lim = Limit{Min: n.ClTotalMin, Max: n.ClTotalMax}
	default:
		return Limit{}, false
	}

	base := DefaultLimits[field]
	if !lim.Min.Valid {
		lim.Min = base.Min
	}
	if !lim.Max.Valid {
		lim.Max = base.Max
	}
	if !lim.Min.Valid && !lim.Max.Valid {
		return Limit{}, false
	}
	return lim, true
}

// Limits merges the organization norms (nil for none) over the defaults.
func Limits(norms *WaterNorms) map[string]Limit {
	if norms == nil {
		return DefaultLimits
	}
	limits := make(map[string]Limit, len(readingLabels))
	for _, rl := range readingLabels {
		if lim, ok := norms.limit(rl.field); ok {
			limits[rl.field] = lim
		}
	}
	return limits
}

func readingValue(r WaterReading, field string) null.Float64 {
	switch field {
	case "ph":
		return r.PH
	case "cl_free":
		return r.ClFree
	case "cl_total":
		return r.ClTotal
	}
	return null.Float64{}
}

// Violations returns a human-readable finding per reading field outside the
// given limits. Unset reading fields are skipped.
func Violations(r WaterReading, limits map[string]Limit) []string {
	var violations []string
	for _, rl := range readingLabels {
		value := readingValue(r, rl.field)
		if !value.Valid {
			continue
		}
		limit, ok := limits[rl.field]
		if !ok {
			continue
		}
		if limit.Min.Valid && value.Float64 < limit.Min.Float64 {
			violations = append(violations, fmt.Sprintf("%s: %g < %g", rl.label, value.Float64, limit.Min.Float64))
		} else if limit.Max.Valid && value.Float64 > limit.Max.Float64 {
			violations = append(violations, fmt.Sprintf("%s: %g > %g", rl.label, value.Float64, limit.Max.Float64))
		}
	}
	return violations
}
