// Package billing gates plan-limited operations against the workspace's
// subscribed plan.
package billing

import (
	"errors"
	"fmt"
	"time"

	"access-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dimension names used in usage counters and snapshots.
const (
	DimMembers     = "members"
	DimAutomations = "automations"
	DimEmails      = "emails"
	DimProposals   = "proposals"
	DimStorage     = "storage"
)

// LimitCheck pairs current usage with the plan limit for one dimension.
type LimitCheck struct {
	Used   int  `json:"used"`
	Limit  int  `json:"limit"` // -1 means unlimited
	Within bool `json:"within"`
}

// Snapshot is the full usage/limits picture returned with every check so
// callers can render "N of M used" without a second query.
type Snapshot struct {
	WorkspaceID  uint                  `json:"workspace_id"`
	Plan         string                `json:"plan,omitempty"`
	Unlimited    bool                  `json:"unlimited"` // no subscription on record
	WithinLimits bool                  `json:"within_limits"`
	Checks       map[string]LimitCheck `json:"checks"`
}

// Gate performs plan-limit checks.
type Gate struct {
	db *gorm.DB
}

// NewGate builds the billing gate.
func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// Check computes the snapshot for a workspace. The overall verdict is a
// conjunction: within limits only when every dimension is within its limit
// or unlimited. A workspace without a subscription or plan is treated as
// unlimited.
func (g *Gate) Check(workspaceID uint) (*Snapshot, error) {
	snapshot := &Snapshot{
		WorkspaceID:  workspaceID,
		WithinLimits: true,
		Checks:       map[string]LimitCheck{},
	}

	plan, err := g.activePlan(workspaceID)
	if err != nil {
		return nil, err
	}

	var memberCount int64
	if err := g.db.Model(&model.WorkspaceMembership{}).
		Where("workspace_id = ?", workspaceID).
		Count(&memberCount).Error; err != nil {
		return nil, err
	}

	usage, err := g.currentUsage(workspaceID)
	if err != nil {
		return nil, err
	}

	if plan == nil {
		snapshot.Unlimited = true
		snapshot.Checks[DimMembers] = LimitCheck{Used: int(memberCount), Limit: model.Unlimited, Within: true}
		snapshot.Checks[DimAutomations] = LimitCheck{Used: usage.AutomationsRun, Limit: model.Unlimited, Within: true}
		snapshot.Checks[DimEmails] = LimitCheck{Used: usage.EmailsSent, Limit: model.Unlimited, Within: true}
		snapshot.Checks[DimProposals] = LimitCheck{Used: usage.ProposalsMade, Limit: model.Unlimited, Within: true}
		snapshot.Checks[DimStorage] = LimitCheck{Used: usage.StorageUsedMB, Limit: model.Unlimited, Within: true}
		return snapshot, nil
	}

	snapshot.Plan = plan.Name
	snapshot.Checks[DimMembers] = check(int(memberCount), plan.MaxMembers)
	snapshot.Checks[DimAutomations] = check(usage.AutomationsRun, plan.MaxAutomations)
	snapshot.Checks[DimEmails] = check(usage.EmailsSent, plan.MaxEmailsPerMonth)
	snapshot.Checks[DimProposals] = check(usage.ProposalsMade, plan.MaxProposals)
	snapshot.Checks[DimStorage] = check(usage.StorageUsedMB, plan.MaxStorageMB)

	for _, c := range snapshot.Checks {
		if !c.Within {
			snapshot.WithinLimits = false
			break
		}
	}
	return snapshot, nil
}

// CanAddMember reports whether one more seat fits the plan, alongside the
// snapshot for messaging.
func (g *Gate) CanAddMember(workspaceID uint) (bool, *Snapshot, error) {
	snapshot, err := g.Check(workspaceID)
	if err != nil {
		return false, nil, err
	}
	seats := snapshot.Checks[DimMembers]
	if seats.Limit == model.Unlimited {
		return true, snapshot, nil
	}
	return seats.Used+1 <= seats.Limit, snapshot, nil
}

// RecordUsage atomically bumps a period counter. column must be one of the
// usage columns; period rows are created on first touch.
func (g *Gate) RecordUsage(workspaceID uint, column string, delta int) error {
	usage := model.WorkspaceUsage{
		WorkspaceID: workspaceID,
		Period:      currentPeriod(),
	}
	switch column {
	case "automations_run":
		usage.AutomationsRun = delta
	case "emails_sent":
		usage.EmailsSent = delta
	case "proposals_made":
		usage.ProposalsMade = delta
	case "storage_used_mb":
		usage.StorageUsedMB = delta
	default:
		return fmt.Errorf("unknown usage column %q", column)
	}
	return g.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(&usage).Error
}

func (g *Gate) activePlan(workspaceID uint) (*model.WorkspacePlan, error) {
	var sub model.WorkspaceSubscription
	err := g.db.Preload("Plan").
		Where("workspace_id = ? AND status IN ?", workspaceID,
			[]string{model.SubscriptionActive, model.SubscriptionTrial}).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Fail-open: workspaces that never adopted billing are unlimited
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sub.Plan.ID == 0 {
		return nil, nil
	}
	return &sub.Plan, nil
}

func (g *Gate) currentUsage(workspaceID uint) (*model.WorkspaceUsage, error) {
	var usage model.WorkspaceUsage
	err := g.db.Where("workspace_id = ? AND period = ?", workspaceID, currentPeriod()).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.WorkspaceUsage{WorkspaceID: workspaceID, Period: currentPeriod()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

func check(used, limit int) LimitCheck {
	within := limit == model.Unlimited || used <= limit
	return LimitCheck{Used: used, Limit: limit, Within: within}
}

func currentPeriod() string {
	return time.Now().UTC().Format("2006-01")
}
