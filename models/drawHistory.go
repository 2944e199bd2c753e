package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/utils"
	"gorm.io/gorm"
)

// DrawRequestHistory is the append-only audit trail of a draw request.
// One row per accepted action; rows are never updated or deleted, and are
// the sole source of truth for what happened when.
type DrawRequestHistory struct {
	ID            int               `gorm:"primary_key" json:"id"`
	CompanyId     string            `gorm:"index;not null" json:"company_id"`
	DrawRequestId int               `gorm:"index;not null" json:"draw_request_id"`
	Action        string            `gorm:"size:30;not null" json:"action"`
	PriorStatus   DrawRequestStatus `gorm:"size:30" json:"prior_status"`
	NewStatus     DrawRequestStatus `gorm:"size:30" json:"new_status"`
	Details       string            `gorm:"type:text" json:"details"`
	UserId        int               `gorm:"index;not null" json:"user_id"`
	UserName      string            `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// appendDrawHistory writes one audit row inside the caller's transaction.
// Actor identity comes from the transaction's context; a missing identity is
// an error, a financial record with no actor is worthless.
func appendDrawHistory(tx *gorm.DB,
	drawRequestId int,
	action string,
	priorStatus DrawRequestStatus,
	newStatus DrawRequestStatus,
	details interface{}) error {

	ctx := tx.Statement.Context

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return errors.New("company id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}

	var detailsJson string
	if details != nil {
		b, _ := json.Marshal(details)
		detailsJson = string(b)
	}

	history := DrawRequestHistory{
		CompanyId:     companyId,
		DrawRequestId: drawRequestId,
		Action:        action,
		PriorStatus:   priorStatus,
		NewStatus:     newStatus,
		Details:       detailsJson,
		UserId:        userId,
		UserName:      userName,
	}

	return tx.Create(&history).Error
}

// GetDrawRequestHistory lists the audit rows of one draw request, oldest first.
func GetDrawRequestHistory(ctx context.Context, drawRequestId int) ([]*DrawRequestHistory, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	// draw request must belong to the caller's company
	if err := utils.ValidateResourceId[DrawRequest](ctx, companyId, drawRequestId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var rows []*DrawRequestHistory
	err := db.WithContext(ctx).
		Where("company_id = ? AND draw_request_id = ?", companyId, drawRequestId).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// hasSubmittedHistory reports whether the draw request has ever left draft.
// Used by the delete guard: a draft that was submitted and later revised is
// part of the financial record and must not be physically removed.
func hasSubmittedHistory(tx *gorm.DB, companyId string, drawRequestId int) (bool, error) {
	var count int64
	err := tx.Model(&DrawRequestHistory{}).
		Where("company_id = ? AND draw_request_id = ? AND action = ?",
			companyId, drawRequestId, HistoryActionSubmitted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
