package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/utils"
)

type drawTransition struct {
	from    []DrawRequestStatus
	to      DrawRequestStatus
	minRole UserRole
}

// the approval workflow. Any (status, action) pair not listed here is
// refused without touching the record.
var drawTransitions = map[DrawAction]drawTransition{
	DrawActionSubmit: {
		from:    []DrawRequestStatus{DrawStatusDraft},
		to:      DrawStatusPendingReview,
		minRole: UserRolePM,
	},
	DrawActionApprove: {
		from:    []DrawRequestStatus{DrawStatusPendingReview},
		to:      DrawStatusApproved,
		minRole: UserRoleAdmin,
	},
	DrawActionReject: {
		from:    []DrawRequestStatus{DrawStatusPendingReview, DrawStatusApproved},
		to:      DrawStatusRejected,
		minRole: UserRoleAdmin,
	},
	DrawActionSendToLender: {
		from:    []DrawRequestStatus{DrawStatusApproved},
		to:      DrawStatusSubmittedToLender,
		minRole: UserRoleAdmin,
	},
	DrawActionMarkFunded: {
		from:    []DrawRequestStatus{DrawStatusSubmittedToLender},
		to:      DrawStatusFunded,
		minRole: UserRoleAdmin,
	},
	DrawActionRevise: {
		from:    []DrawRequestStatus{DrawStatusRejected},
		to:      DrawStatusDraft,
		minRole: UserRolePM,
	},
}

// CheckDrawActionRole is the authorization gate, evaluated before the
// current status is even read so an unauthorized caller learns nothing
// beyond "forbidden".
func CheckDrawActionRole(action DrawAction, role UserRole) error {
	transition, ok := drawTransitions[action]
	if !ok {
		return fmt.Errorf("%w: unknown draw action %q", utils.ErrorValidation, action)
	}
	if !role.AtLeast(transition.minRole) {
		return fmt.Errorf("%w: %s requires at least %s role", utils.ErrorForbidden, action, transition.minRole)
	}
	return nil
}

// CanTransition validates one (status, action, role) triple. Role is
// checked first, state second.
func CanTransition(status DrawRequestStatus, action DrawAction, role UserRole) error {
	if err := CheckDrawActionRole(action, role); err != nil {
		return err
	}
	transition := drawTransitions[action]
	for _, from := range transition.from {
		if status == from {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s a draw request in %s status", utils.ErrorConflict, action, status)
}

// TransitionTarget returns the destination status of an action.
func TransitionTarget(action DrawAction) (DrawRequestStatus, error) {
	transition, ok := drawTransitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown draw action %q", utils.ErrorValidation, action)
	}
	return transition.to, nil
}

// applyDrawTransition runs one status change end to end: role gate, fetch,
// state gate, optional action-specific guard, then an atomic compare-and-set
// against the status observed at fetch time plus one audit row, all in one
// transaction. Two racing callers cannot both succeed: the loser's UPDATE
// matches zero rows and surfaces a conflict.
func applyDrawTransition(ctx context.Context,
	id int,
	action DrawAction,
	historyAction string,
	guard func(draw *DrawRequest) error,
	updates map[string]interface{},
	details interface{}) (*DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	roleName, ok := utils.GetUserRoleFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: missing role", utils.ErrorForbidden)
	}
	role, err := ParseUserRole(roleName)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown role %q", utils.ErrorForbidden, roleName)
	}

	// role gate comes before the record is even loaded
	if err := CheckDrawActionRole(action, role); err != nil {
		return nil, err
	}

	draw, err := utils.FetchModel[DrawRequest](ctx, companyId, id, "Lines")
	if err != nil {
		return nil, err
	}
	AggregateDrawHeader(draw)

	if err := CanTransition(draw.CurrentStatus, action, role); err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(draw); err != nil {
			return nil, err
		}
	}

	priorStatus := draw.CurrentStatus
	newStatus := drawTransitions[action].to
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["current_status"] = newStatus

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// compare-and-set keyed on the status we just observed
	result := tx.WithContext(ctx).Model(&DrawRequest{}).
		Where("id = ? AND company_id = ? AND current_status = ?", draw.ID, companyId, priorStatus).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: draw request status changed concurrently", utils.ErrorConflict)
	}

	if action == DrawActionMarkFunded {
		if err := createDrawFundingTransaction(tx.WithContext(ctx), draw); err != nil {
			return nil, err
		}
	}

	if err := appendDrawHistory(tx.WithContext(ctx), draw.ID, historyAction,
		priorStatus, newStatus, details); err != nil {
		return nil, err
	}

	// reload inside the transaction so the response carries every column
	// the update wrote (review stamps, lender reference, cleared fields),
	// not just the flipped status
	if err := tx.WithContext(ctx).Preload("Lines").
		Where("id = ? AND company_id = ?", draw.ID, companyId).
		First(draw).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	AggregateDrawHeader(draw)
	return draw, nil
}

// variance guard shared by approve and reject. A schedule that does not
// reconcile with the contract amount must be acknowledged before the
// reviewer acts on it; acknowledgment is the caller's statement, never
// computed here.
func varianceGuard(acknowledge bool) func(draw *DrawRequest) error {
	return func(draw *DrawRequest) error {
		if !config.RequireVarianceAcknowledgment() {
			return nil
		}
		if !draw.HasReconciliationWarning {
			return nil
		}
		if acknowledge || utils.DereferencePtr(draw.VarianceAcknowledged) {
			return nil
		}
		return fmt.Errorf("%w: schedule of values variance of %s must be acknowledged",
			utils.ErrorValidation, draw.ReconciliationVariance.StringFixed(2))
	}
}

type SubmitDrawInput struct {
	Notes string `json:"notes"`
}

func SubmitDrawRequest(ctx context.Context, id int, input *SubmitDrawInput) (*DrawRequest, error) {

	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	updates := map[string]interface{}{
		"submitted_by": userId,
		"submitted_at": now,
	}
	notes := ""
	if input != nil {
		notes = input.Notes
	}

	return applyDrawTransition(ctx, id, DrawActionSubmit, HistoryActionSubmitted,
		nil, updates, map[string]interface{}{"notes": notes})
}

type ApproveDrawInput struct {
	Notes               string `json:"notes"`
	AcknowledgeVariance bool   `json:"acknowledge_variance"`
}

func ApproveDrawRequest(ctx context.Context, id int, input *ApproveDrawInput) (*DrawRequest, error) {

	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	notes := ""
	acknowledge := false
	if input != nil {
		notes = input.Notes
		acknowledge = input.AcknowledgeVariance
	}

	updates := map[string]interface{}{
		"approved_by": userId,
		"approved_at": now,
	}
	if acknowledge {
		updates["variance_acknowledged"] = true
	}

	return applyDrawTransition(ctx, id, DrawActionApprove, HistoryActionApproved,
		varianceGuard(acknowledge), updates, map[string]interface{}{"notes": notes})
}

type RejectDrawInput struct {
	Reason              string `json:"reason" binding:"required"`
	AcknowledgeVariance bool   `json:"acknowledge_variance"`
}

func RejectDrawRequest(ctx context.Context, id int, input *RejectDrawInput) (*DrawRequest, error) {

	if input == nil || input.Reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", utils.ErrorValidation)
	}

	updates := map[string]interface{}{
		"rejection_reason": input.Reason,
	}
	if input.AcknowledgeVariance {
		updates["variance_acknowledged"] = true
	}

	return applyDrawTransition(ctx, id, DrawActionReject, HistoryActionRejected,
		varianceGuard(input.AcknowledgeVariance), updates,
		map[string]interface{}{"reason": input.Reason})
}

type SendToLenderInput struct {
	LenderReference string `json:"lender_reference"`
}

func MarkDrawRequestSubmittedToLender(ctx context.Context, id int, input *SendToLenderInput) (*DrawRequest, error) {

	lenderReference := ""
	if input != nil {
		lenderReference = input.LenderReference
	}

	updates := map[string]interface{}{}
	if lenderReference != "" {
		updates["lender_reference"] = lenderReference
	}

	return applyDrawTransition(ctx, id, DrawActionSendToLender, HistoryActionSentToLender,
		nil, updates, map[string]interface{}{"lender_reference": lenderReference})
}

// MarkDrawRequestFunded finalizes the draw. The funding ledger row is
// written in the same transaction as the status flip, so a funded status
// without its ledger entry can never be observed.
func MarkDrawRequestFunded(ctx context.Context, id int) (*DrawRequest, error) {
	return applyDrawTransition(ctx, id, DrawActionMarkFunded, HistoryActionFunded,
		nil, nil, nil)
}

// ReviseDrawRequest reopens a rejected draw for correction. Same draw
// number, new edit cycle; review stamps are cleared, the rejection reason
// stays in the audit history.
func ReviseDrawRequest(ctx context.Context, id int) (*DrawRequest, error) {

	updates := map[string]interface{}{
		"submitted_by":          nil,
		"submitted_at":          nil,
		"approved_by":           nil,
		"approved_at":           nil,
		"rejection_reason":      "",
		"variance_acknowledged": false,
	}

	return applyDrawTransition(ctx, id, DrawActionRevise, HistoryActionRevised,
		nil, updates, nil)
}
