package services

import (
	"context"
	"errors"
	"time"

	"github.com/stageiq/stageiq/internal/models"
	pgrepo "github.com/stageiq/stageiq/internal/repositories/postgres"
	"github.com/stageiq/stageiq/internal/utils"
)

// QuotaInfo is the caller-visible view of one capability's monthly budget.
type QuotaInfo struct {
	Plan       string `json:"plan"`
	Capability string `json:"capability"`
	Unlimited  bool   `json:"unlimited"`
	Limit      int64  `json:"limit"`
	Used       int64  `json:"used"`
	Allowed    bool   `json:"allowed"`
}

type UsageService interface {
	// MayConsume reports whether the user may consume one unit of the
	// capability right now. Checked before the pipeline starts, not after.
	MayConsume(ctx context.Context, userID, capability string) (bool, error)
	// RecordConsumption charges one unit for a completed assessment.
	// Idempotent: a retried notification for the same assessment is a no-op.
	RecordConsumption(ctx context.Context, userID, assessmentID string) error
	Quota(ctx context.Context, userID, capability string) (*QuotaInfo, error)
}

type usageService struct {
	entitlements pgrepo.EntitlementRepository
	usage        pgrepo.UsageRepository

	// Now is overridable in tests for month-rollover cases.
	Now func() time.Time
}

func NewUsageService(entitlements pgrepo.EntitlementRepository, usage pgrepo.UsageRepository) UsageService {
	return &usageService{
		entitlements: entitlements,
		usage:        usage,
		Now:          time.Now,
	}
}

// PeriodKey identifies one user-month counter bucket, e.g. "2026-09".
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func (s *usageService) MayConsume(ctx context.Context, userID, capability string) (bool, error) {
	const op = "UsageService.MayConsume"

	if userID == "" || capability == "" {
		return false, utils.E(utils.CodeInvalidArgument, op, "user_id and capability are required", nil)
	}

	ent, err := s.entitlements.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return false, nil
		}
		return false, utils.E(utils.CodeInternal, op, "failed to load entitlement", err)
	}

	now := s.Now()
	if ent.TrialExpired(now) {
		return false, nil
	}

	limit, ok := ent.Limit(capability)
	if !ok {
		return false, nil
	}
	if limit == models.LimitUnlimited {
		return true, nil
	}

	used, err := s.usage.CountForPeriod(ctx, userID, PeriodKey(now))
	if err != nil {
		return false, utils.E(utils.CodeInternal, op, "failed to count usage", err)
	}
	return used < limit, nil
}

func (s *usageService) RecordConsumption(ctx context.Context, userID, assessmentID string) error {
	const op = "UsageService.RecordConsumption"

	if userID == "" || assessmentID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and assessment_id are required", nil)
	}

	now := s.Now().UTC()
	_, err := s.usage.InsertConsumption(ctx, &models.UsageConsumption{
		UserID:       userID,
		AssessmentID: assessmentID,
		PeriodKey:    PeriodKey(now),
		CreatedAt:    now,
	})
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to record consumption", err)
	}
	return nil
}

func (s *usageService) Quota(ctx context.Context, userID, capability string) (*QuotaInfo, error) {
	const op = "UsageService.Quota"

	if userID == "" || capability == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and capability are required", nil)
	}

	ent, err := s.entitlements.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return &QuotaInfo{Capability: capability}, nil
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load entitlement", err)
	}

	now := s.Now()
	info := &QuotaInfo{Plan: ent.PlanName, Capability: capability}

	limit, ok := ent.Limit(capability)
	if !ok || ent.TrialExpired(now) {
		return info, nil
	}

	used, err := s.usage.CountForPeriod(ctx, userID, PeriodKey(now))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count usage", err)
	}

	info.Used = used
	if limit == models.LimitUnlimited {
		info.Unlimited = true
		info.Allowed = true
		return info, nil
	}
	info.Limit = limit
	info.Allowed = used < limit
	return info, nil
}
