package models

import (
	"fmt"

	"github.com/hlyanhtet/buildbooks_backend/utils"
)

type DrawRequestStatus string

const (
	DrawStatusDraft             DrawRequestStatus = "draft"
	DrawStatusPendingReview     DrawRequestStatus = "pending_review"
	DrawStatusApproved          DrawRequestStatus = "approved"
	DrawStatusSubmittedToLender DrawRequestStatus = "submitted_to_lender"
	DrawStatusFunded            DrawRequestStatus = "funded"
	DrawStatusRejected          DrawRequestStatus = "rejected"
)

// convert input to enum type
func ParseDrawRequestStatus(s string) (DrawRequestStatus, error) {
	switch s {
	case "draft":
		return DrawStatusDraft, nil
	case "pending_review":
		return DrawStatusPendingReview, nil
	case "approved":
		return DrawStatusApproved, nil
	case "submitted_to_lender":
		return DrawStatusSubmittedToLender, nil
	case "funded":
		return DrawStatusFunded, nil
	case "rejected":
		return DrawStatusRejected, nil
	default:
		return "", fmt.Errorf("%w: invalid draw request status %q", utils.ErrorValidation, s)
	}
}

func (s DrawRequestStatus) Valid() bool {
	_, err := ParseDrawRequestStatus(string(s))
	return err == nil
}

type DrawAction string

const (
	DrawActionSubmit       DrawAction = "submit"
	DrawActionApprove      DrawAction = "approve"
	DrawActionReject       DrawAction = "reject"
	DrawActionSendToLender DrawAction = "mark-submitted-to-lender"
	DrawActionMarkFunded   DrawAction = "mark-funded"
	DrawActionRevise       DrawAction = "revise"
)

// history action types (append-only audit rows)
const (
	HistoryActionCreated      = "created"
	HistoryActionUpdated      = "updated"
	HistoryActionLineEdited   = "line_edited"
	HistoryActionSubmitted    = "submitted"
	HistoryActionApproved     = "approved"
	HistoryActionRejected     = "rejected"
	HistoryActionSentToLender = "sent_to_lender"
	HistoryActionFunded       = "funded"
	HistoryActionRevised      = "revised"
)

type UserRole string

const (
	UserRoleField UserRole = "field"
	UserRolePM    UserRole = "pm"
	UserRoleAdmin UserRole = "admin"
)

// closed ordering of roles. Guards compare ranks, never strings,
// so adding a role means adding one entry here.
var userRoleRank = map[UserRole]int{
	UserRoleField: 1,
	UserRolePM:    2,
	UserRoleAdmin: 3,
}

func ParseUserRole(s string) (UserRole, error) {
	role := UserRole(s)
	if _, ok := userRoleRank[role]; !ok {
		return "", fmt.Errorf("%w: invalid user role %q", utils.ErrorValidation, s)
	}
	return role, nil
}

func (r UserRole) Valid() bool {
	_, ok := userRoleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min.
// Unknown roles rank below everything.
func (r UserRole) AtLeast(min UserRole) bool {
	return userRoleRank[r] >= userRoleRank[min]
}
