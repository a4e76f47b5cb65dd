package approval

import (
	"time"

	"sacco-workflow/internal/domain/workflow"
)

type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
	OutcomeReturn  Outcome = "return"
)

func (o Outcome) Valid() bool {
	return o == OutcomeApprove || o == OutcomeReject || o == OutcomeReturn
}

// RequiresRemarks: reject and return must explain themselves to the member.
func (o Outcome) RequiresRemarks() bool { return o == OutcomeReject || o == OutcomeReturn }

// Table: approval_decisions. Rows are never updated or deleted.
type Decision struct {
	// Internal numeric PK
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Public identifier (32-char lowercase hex)
	DecisionID string `gorm:"column:decision_id;size:32;not null;uniqueIndex:ux_approval_decisions_decision_id"`
	// FK to loan_applications.id (numeric)
	ApplicationID uint64        `gorm:"column:application_id;not null;index:idx_approval_decisions_application"`
	DeciderID     string        `gorm:"column:decider_id;size:32;not null"`
	DeciderRole   workflow.Role `gorm:"column:decider_role;size:32;not null"`
	StageIndex    int           `gorm:"column:stage_index;not null"`
	StageName     string        `gorm:"column:stage_name;size:64;not null"`
	Round         int           `gorm:"column:round;not null"`
	Outcome       Outcome       `gorm:"column:outcome;size:16;not null"`
	Remarks       string        `gorm:"column:remarks;type:text"`
	DecidedAt     time.Time     `gorm:"column:decided_at;not null"`
}

func (Decision) TableName() string { return "approval_decisions" }
