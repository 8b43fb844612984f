package pool

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Service frequencies
const (
	FreqWeekly       = "weekly"
	FreqTwiceMonthly = "twice_monthly"
	FreqMonthly      = "monthly"
	FreqBimonthly    = "bimonthly"
	FreqQuarterly    = "quarterly"
	FreqTwiceYearly  = "twice_yearly"
	FreqYearly       = "yearly"
)

// Pool shapes
const (
	ShapeRect  = "rect"
	ShapeRound = "round"
	ShapeOval  = "oval"
	ShapeFree  = "free"
)

// Pool types
const (
	TypeOverflow = "overflow"
	TypeSkimmer  = "skimmer"
)

// Pool is a serviced object (swimming pool or water-treatment installation)
// under a maintenance contract.
type Pool struct {
	ID             string      `json:"id"`
	ClientID       string      `json:"client_id"`
	OrganizationID null.String `json:"organization_id"`
	Address        string      `json:"address"`
	Description    string      `json:"description,omitempty"`

	Shape          string       `json:"shape"`
	PoolType       string       `json:"pool_type"`
	Length         null.Float64 `json:"length"`
	Width          null.Float64 `json:"width"`
	Diameter       null.Float64 `json:"diameter"`
	VariableDepth  bool         `json:"variable_depth"`
	Depth          null.Float64 `json:"depth"`
	DepthMin       null.Float64 `json:"depth_min"`
	DepthMax       null.Float64 `json:"depth_max"`
	OverflowVolume null.Float64 `json:"overflow_volume"`
	SurfaceArea    null.Float64 `json:"surface_area"`
	Volume         null.Float64 `json:"volume"`
	DosingStation  bool         `json:"dosing_station"`

	// Scheduling driver: ServiceIntervalDays wins over ServiceFrequency
	// when both are set.
	ServiceFrequency      null.String `json:"service_frequency"`
	ServiceIntervalDays   null.Int    `json:"service_interval_days"`
	ServiceSuspended      bool        `json:"service_suspended"`
	DailyReadingsRequired bool        `json:"daily_readings_required"`

	CreatedAt time.Time `json:"created_at"` // UTC; scheduling anchor of record-less pools
}

// WaterReading is a timestamped measurement for one pool. It doubles as the
// record of a completed service visit.
type WaterReading struct {
	ID        string      `json:"id"`
	PoolID    string      `json:"pool_id"`
	Date      time.Time   `json:"date"`
	AddedByID null.String `json:"added_by_id"`

	Temperature null.Float64 `json:"temperature"`
	PH          null.Float64 `json:"ph"`
	ClFree      null.Float64 `json:"cl_free"`
	ClTotal     null.Float64 `json:"cl_total"`

	PHDosingStation      null.Float64 `json:"ph_dosing_station"`
	ClFreeDosingStation  null.Float64 `json:"cl_free_dosing_station"`
	ClTotalDosingStation null.Float64 `json:"cl_total_dosing_station"`
	RedoxDosingStation   null.Float64 `json:"redox_dosing_station"`

	Comment           string `json:"comment,omitempty"`
	RequiredMaterials string `json:"required_materials,omitempty"`
	PerformedWorks    string `json:"performed_works,omitempty"`
}

// NewPool contains information needed to create a Pool.
type NewPool struct {
	ClientID       string `json:"client_id" validate:"required"`
	OrganizationID string `json:"organization_id"`
	Address        string `json:"address" validate:"required"`
	Description    string `json:"description"`
	Shape          string `json:"shape" validate:"omitempty,oneof=rect round oval free"`
	PoolType       string `json:"pool_type" validate:"omitempty,oneof=overflow skimmer"`

	ServiceFrequency      string `json:"service_frequency" validate:"omitempty,oneof=weekly twice_monthly monthly bimonthly quarterly twice_yearly yearly"`
	ServiceIntervalDays   *int   `json:"service_interval_days" validate:"omitempty,min=1"`
	DailyReadingsRequired bool   `json:"daily_readings_required"`
}

// NewReading contains information needed to record a WaterReading.
type NewReading struct {
	Date time.Time `json:"date" validate:"required"`

	Temperature *float64 `json:"temperature"`
	PH          *float64 `json:"ph"`
	ClFree      *float64 `json:"cl_free"`
	ClTotal     *float64 `json:"cl_total"`

	PHDosingStation      *float64 `json:"ph_dosing_station"`
	ClFreeDosingStation  *float64 `json:"cl_free_dosing_station"`
	ClTotalDosingStation *float64 `json:"cl_total_dosing_station"`
	RedoxDosingStation   *float64 `json:"redox_dosing_station"`

	Comment           string `json:"comment"`
	RequiredMaterials string `json:"required_materials"`
	PerformedWorks    string `json:"performed_works"`
}
