package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/andsoler0309/HR-app-sub001/app/models"
)

// CleanupResult reports what one cleanup run did, per sweep.
type CleanupResult struct {
	StalePendingCancelled  int      `json:"stale_pending_cancelled"`
	BackupPendingCancelled int      `json:"backup_pending_cancelled"`
	ActiveExpired          int      `json:"active_expired"`
	ProfilesHealed         int      `json:"profiles_healed"`
	Errors                 []string `json:"errors,omitempty"`
}

// RunCleanup executes the sweeps the cron endpoint and the background
// scheduler trigger. Each sweep runs independently: a failure is recorded
// and the remaining sweeps still execute. Every transition is a CAS update,
// so overlapping runs (cron racing the scheduler) produce no double
// transitions.
func (s *Service) RunCleanup(ctx context.Context) CleanupResult {
	_ = ctx
	var res CleanupResult

	n, err := s.sweepStalePending(ActivationWindow)
	res.StalePendingCancelled = n
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("stale pending sweep: %v", err))
	}

	// Backup sweep at one hour catches rows the primary missed. Duplicate
	// coverage is intentional.
	n, err = s.sweepStalePending(ActivationWindowBackup)
	res.BackupPendingCancelled = n
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("backup pending sweep: %v", err))
	}

	n, err = s.sweepExpiredActive()
	res.ActiveExpired = n
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("expired active sweep: %v", err))
	}

	n, err = s.healProfiles()
	res.ProfilesHealed = n
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("profile heal: %v", err))
	}

	return res
}

// sweepStalePending cancels pending rows older than the window. The list is
// only a candidate set; the CAS update re-checks the pending status, so a
// row activated between list and update stays active.
func (s *Service) sweepStalePending(window time.Duration) (int, error) {
	now := s.now()
	stale, err := s.repo.ListStalePending(now.Add(-window))
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range stale {
		ok, err := s.repo.TransitionStatus(stale[i].ID,
			[]string{models.SubscriptionStatusPending},
			map[string]interface{}{
				"status":              models.SubscriptionStatusCancelled,
				"cancellation_reason": ReasonActivationExpired,
				"cancelled_at":        &now,
			})
		if err != nil {
			return swept, err
		}
		if ok {
			swept++
		}
	}
	return swept, nil
}

// sweepExpiredActive expires active rows whose period end has passed and
// drops their profiles to free.
func (s *Service) sweepExpiredActive() (int, error) {
	now := s.now()
	expired, err := s.repo.ListExpiredActive(now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range expired {
		ok, err := s.repo.TransitionStatus(expired[i].ID,
			[]string{models.SubscriptionStatusActive},
			map[string]interface{}{"status": models.SubscriptionStatusExpired})
		if err != nil {
			return swept, err
		}
		if !ok {
			continue
		}
		swept++
		if err := s.setProfile(expired[i].UserID, models.ProfileStatusFree); err != nil {
			return swept, err
		}
	}
	return swept, nil
}

// healProfiles repairs Subscription/Profile divergence left by a crash
// between the two writes: premium profiles without an active subscription
// drop to free, users with an active subscription get premium back.
func (s *Service) healProfiles() (int, error) {
	activeUsers, err := s.repo.ListActiveSubscriptionUserIDs()
	if err != nil {
		return 0, err
	}
	premiumUsers, err := s.repo.ListPremiumProfileUserIDs()
	if err != nil {
		return 0, err
	}

	activeSet := make(map[string]struct{}, len(activeUsers))
	for _, id := range activeUsers {
		activeSet[id] = struct{}{}
	}
	premiumSet := make(map[string]struct{}, len(premiumUsers))
	for _, id := range premiumUsers {
		premiumSet[id] = struct{}{}
	}

	healed := 0
	for _, id := range premiumUsers {
		if _, ok := activeSet[id]; !ok {
			if err := s.setProfile(id, models.ProfileStatusFree); err != nil {
				return healed, err
			}
			healed++
		}
	}
	for _, id := range activeUsers {
		if _, ok := premiumSet[id]; !ok {
			if err := s.setProfile(id, models.ProfileStatusPremium); err != nil {
				return healed, err
			}
			healed++
		}
	}
	return healed, nil
}
