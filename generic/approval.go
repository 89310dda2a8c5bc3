/*
approval.go - Two-person approval state machine

PURPOSE:
  Every transaction, expense and project carries an Approval block. An
  entry written by a signed-in user starts pending and stays pending until
  the OTHER user approves it; an entry with no creator is approved from
  the start.

STATE FLOW:
  ┌──────────────────────────────────────────────────────────┐
  │                                                          │
  │   create(createdBy="")  ─────────────────▶  approved     │
  │                                                ▲         │
  │   create(createdBy="A") ──▶  pending ──────────┘         │
  │                                    approve(by "B")       │
  │                                                          │
  └──────────────────────────────────────────────────────────┘

  There is no reject transition. A pending entry leaves pending only by
  approval or by deletion. Edits never touch the Approval block.

LEGACY RULE:
  Records written before the state machine existed have no status at all.
  They count as approved. This is a compatibility rule for old data, not
  an invitation to write status-less records.

APPROVE PRECONDITIONS (CanApprove mirrors them exactly):
  - status is pending
  - createdBy is set
  - approver is set and differs from createdBy

APPROVE ALL:
  Sequential, in list order, over the records the approver may approve.
  The first failure stops the run; approvals already committed stay.

SEE ALSO:
  - finance/service.go: Persists approvals
  - errors.go: ErrNotPending, ErrNoCreator, ErrSelfApproval
*/
package generic

import (
	"context"
	"strings"
	"time"
)

// =============================================================================
// APPROVAL STATE
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Approval is embedded in every approvable record.
type Approval struct {
	CreatedBy  string     `json:"createdBy,omitempty"`
	Status     Status     `json:"status,omitempty"`
	ApprovedBy string     `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
}

// NewApproval is the create transition.
func NewApproval(createdBy string) Approval {
	createdBy = strings.TrimSpace(createdBy)
	if createdBy == "" {
		return Approval{Status: StatusApproved}
	}
	return Approval{CreatedBy: createdBy, Status: StatusPending}
}

// ApprovalState lets embedding records satisfy Approvable.
func (a Approval) ApprovalState() Approval { return a }

// IsApproved treats a missing status as approved.
func (a Approval) IsApproved() bool {
	return a.Status == StatusApproved || a.Status == ""
}

// CanApprove reports whether userID may approve this record right now.
func (a Approval) CanApprove(userID string) bool {
	return a.precondition(userID) == nil
}

// Approve is the only way out of pending besides deletion.
func (a *Approval) Approve(approverID string, at time.Time) error {
	if err := a.precondition(approverID); err != nil {
		return err
	}
	approvedAt := at.UTC()
	a.Status = StatusApproved
	a.ApprovedBy = approverID
	a.ApprovedAt = &approvedAt
	return nil
}

func (a Approval) precondition(approverID string) error {
	if a.Status != StatusPending {
		return ErrNotPending
	}
	if a.CreatedBy == "" {
		return ErrNoCreator
	}
	if approverID == "" {
		return ErrApproverRequired
	}
	if approverID == a.CreatedBy {
		return ErrSelfApproval
	}
	return nil
}

// =============================================================================
// COLLECTION HELPERS
// =============================================================================

// Approvable is any record that carries an Approval block.
type Approvable interface {
	RecordID() string
	ApprovalState() Approval
}

// PendingOnly keeps records that are not approved.
func PendingOnly[T Approvable](items []T) []T {
	out := make([]T, 0)
	for _, item := range items {
		if !item.ApprovalState().IsApproved() {
			out = append(out, item)
		}
	}
	return out
}

// ApproveAll applies approve to every record approverID may approve, one at
// a time. It returns how many succeeded and the first error, if any.
func ApproveAll[T Approvable](
	ctx context.Context,
	items []T,
	approverID string,
	approve func(context.Context, T) error,
) (int, error) {
	approved := 0
	for _, item := range items {
		if !item.ApprovalState().CanApprove(approverID) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return approved, err
		}
		if err := approve(ctx, item); err != nil {
			return approved, err
		}
		approved++
	}
	return approved, nil
}
