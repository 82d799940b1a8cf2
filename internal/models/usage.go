package models

import (
	"time"

	"gorm.io/datatypes"
)

// CapabilityVideoAnalysis is the one metered capability this service owns.
const CapabilityVideoAnalysis = "video_analysis"

// LimitUnlimited marks a capability with no monthly cap.
const LimitUnlimited int64 = -1

// UsageConsumption records one consumed analysis unit. The composite primary
// key makes a duplicate completion notification a no-op insert instead of a
// double count.
type UsageConsumption struct {
	UserID       string    `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	AssessmentID string    `gorm:"column:assessment_id;type:uuid;primaryKey" json:"assessment_id"`
	PeriodKey    string    `gorm:"column:period_key;type:text;index" json:"period_key"` // "2026-09"
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (UsageConsumption) TableName() string { return "usage_consumptions" }

// PlanEntitlement is the billing collaborator's read model: plan name, an
// optional trial window, and per-capability monthly limits. This service
// only ever reads it.
type PlanEntitlement struct {
	UserID   string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	PlanName string `gorm:"column:plan_name;type:text" json:"plan_name"`

	TrialStart *time.Time `gorm:"column:trial_start;type:timestamptz" json:"trial_start,omitempty"`
	TrialEnd   *time.Time `gorm:"column:trial_end;type:timestamptz" json:"trial_end,omitempty"`

	MonthlyLimits datatypes.JSONType[map[string]int64] `gorm:"column:monthly_limits;type:jsonb" json:"monthly_limits"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (PlanEntitlement) TableName() string { return "plan_entitlements" }

// Limit returns the monthly cap for a capability. The second return is false
// when the plan does not grant the capability at all.
func (p *PlanEntitlement) Limit(capability string) (int64, bool) {
	limits := p.MonthlyLimits.Data()
	if limits == nil {
		return 0, false
	}
	n, ok := limits[capability]
	return n, ok
}

// TrialExpired reports whether a trial window exists and has ended as of now.
func (p *PlanEntitlement) TrialExpired(now time.Time) bool {
	return p.TrialEnd != nil && now.After(*p.TrialEnd)
}
