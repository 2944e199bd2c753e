package models_test

import (
	"errors"
	"testing"

	"github.com/hlyanhtet/buildbooks_backend/models"
	"github.com/hlyanhtet/buildbooks_backend/utils"
)

var allStatuses = []models.DrawRequestStatus{
	models.DrawStatusDraft,
	models.DrawStatusPendingReview,
	models.DrawStatusApproved,
	models.DrawStatusSubmittedToLender,
	models.DrawStatusFunded,
	models.DrawStatusRejected,
}

var allActions = []models.DrawAction{
	models.DrawActionSubmit,
	models.DrawActionApprove,
	models.DrawActionReject,
	models.DrawActionSendToLender,
	models.DrawActionMarkFunded,
	models.DrawActionRevise,
}

// the legal (action, source) pairs; everything else must be refused
var allowedPairs = map[models.DrawAction][]models.DrawRequestStatus{
	models.DrawActionSubmit:       {models.DrawStatusDraft},
	models.DrawActionApprove:      {models.DrawStatusPendingReview},
	models.DrawActionReject:       {models.DrawStatusPendingReview, models.DrawStatusApproved},
	models.DrawActionSendToLender: {models.DrawStatusApproved},
	models.DrawActionMarkFunded:   {models.DrawStatusSubmittedToLender},
	models.DrawActionRevise:       {models.DrawStatusRejected},
}

func contains(list []models.DrawRequestStatus, s models.DrawRequestStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCanTransition_FullMatrix(t *testing.T) {
	// admin passes every role gate, so only the state gate is exercised
	for _, action := range allActions {
		for _, status := range allStatuses {
			err := models.CanTransition(status, action, models.UserRoleAdmin)
			if contains(allowedPairs[action], status) {
				if err != nil {
					t.Errorf("(%s, %s): expected allowed, got %v", status, action, err)
				}
				continue
			}
			if err == nil {
				t.Errorf("(%s, %s): expected refusal", status, action)
				continue
			}
			if !errors.Is(err, utils.ErrorConflict) {
				t.Errorf("(%s, %s): expected conflict, got %v", status, action, err)
			}
		}
	}
}

func TestCanTransition_RoleBelowMinimumIsForbidden(t *testing.T) {
	// an under-ranked actor is refused regardless of status, and the error
	// is forbidden, never conflict: the caller must not learn the state
	for _, action := range allActions {
		for _, status := range allStatuses {
			err := models.CanTransition(status, action, models.UserRoleField)
			if err == nil {
				t.Errorf("(%s, %s): field role should never pass", status, action)
				continue
			}
			if !errors.Is(err, utils.ErrorForbidden) {
				t.Errorf("(%s, %s): expected forbidden for field role, got %v", status, action, err)
			}
		}
	}
}

func TestCanTransition_PMGates(t *testing.T) {
	// pm may submit and revise, nothing else
	if err := models.CanTransition(models.DrawStatusDraft, models.DrawActionSubmit, models.UserRolePM); err != nil {
		t.Fatalf("pm submit from draft: %v", err)
	}
	if err := models.CanTransition(models.DrawStatusRejected, models.DrawActionRevise, models.UserRolePM); err != nil {
		t.Fatalf("pm revise from rejected: %v", err)
	}
	for _, action := range []models.DrawAction{
		models.DrawActionApprove,
		models.DrawActionReject,
		models.DrawActionSendToLender,
		models.DrawActionMarkFunded,
	} {
		err := models.CanTransition(models.DrawStatusPendingReview, action, models.UserRolePM)
		if !errors.Is(err, utils.ErrorForbidden) {
			t.Errorf("pm %s: expected forbidden, got %v", action, err)
		}
	}
}

func TestCanTransition_UnknownAction(t *testing.T) {
	err := models.CanTransition(models.DrawStatusDraft, models.DrawAction("archive"), models.UserRoleAdmin)
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("expected validation error for unknown action, got %v", err)
	}
}

func TestTransitionTarget(t *testing.T) {
	targets := map[models.DrawAction]models.DrawRequestStatus{
		models.DrawActionSubmit:       models.DrawStatusPendingReview,
		models.DrawActionApprove:      models.DrawStatusApproved,
		models.DrawActionReject:       models.DrawStatusRejected,
		models.DrawActionSendToLender: models.DrawStatusSubmittedToLender,
		models.DrawActionMarkFunded:   models.DrawStatusFunded,
		models.DrawActionRevise:       models.DrawStatusDraft,
	}
	for action, want := range targets {
		got, err := models.TransitionTarget(action)
		if err != nil {
			t.Fatalf("TransitionTarget(%s): %v", action, err)
		}
		if got != want {
			t.Errorf("TransitionTarget(%s) = %s, want %s", action, got, want)
		}
	}
}

func TestUserRoleOrdering(t *testing.T) {
	if !models.UserRoleAdmin.AtLeast(models.UserRolePM) {
		t.Error("admin should rank at least pm")
	}
	if !models.UserRolePM.AtLeast(models.UserRoleField) {
		t.Error("pm should rank at least field")
	}
	if models.UserRoleField.AtLeast(models.UserRolePM) {
		t.Error("field should rank below pm")
	}
	if models.UserRole("auditor").AtLeast(models.UserRoleField) {
		t.Error("unknown roles must rank below everything")
	}
	if _, err := models.ParseUserRole("superadmin"); !errors.Is(err, utils.ErrorValidation) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}
}

func TestParseDrawRequestStatus(t *testing.T) {
	for _, status := range allStatuses {
		parsed, err := models.ParseDrawRequestStatus(string(status))
		if err != nil {
			t.Fatalf("ParseDrawRequestStatus(%s): %v", status, err)
		}
		if parsed != status {
			t.Errorf("ParseDrawRequestStatus(%s) = %s", status, parsed)
		}
	}
	if _, err := models.ParseDrawRequestStatus("Draft"); !errors.Is(err, utils.ErrorValidation) {
		t.Errorf("status values are lowercase, expected validation error, got %v", err)
	}
}
