package models

import (
	"context"
	"errors"
	"time"

	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FundingTransaction is the job funding ledger: one row per funded draw,
// recording the amount actually disbursed. Written only by the funded
// transition, never edited afterwards.
type FundingTransaction struct {
	ID            int             `gorm:"primary_key" json:"id"`
	CompanyId     string          `gorm:"index;not null" json:"company_id"`
	JobId         int             `gorm:"index;not null" json:"job_id"`
	DrawRequestId int             `gorm:"uniqueIndex;not null" json:"draw_request_id"`
	DrawNumber    int             `gorm:"not null" json:"draw_number"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Retainage     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"retainage"`
	FundedAt      time.Time       `gorm:"not null" json:"funded_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// createDrawFundingTransaction runs inside the funded transition's
// transaction. Amount is the draw's current_due at funding time; the
// unique index on draw_request_id makes double-funding impossible even
// if the status check were ever bypassed.
func createDrawFundingTransaction(tx *gorm.DB, draw *DrawRequest) error {

	funding := FundingTransaction{
		CompanyId:     draw.CompanyId,
		JobId:         draw.JobId,
		DrawRequestId: draw.ID,
		DrawNumber:    draw.DrawNumber,
		Amount:        draw.CurrentDue,
		Retainage:     draw.RetainageAmount,
		FundedAt:      time.Now(),
	}
	return tx.Create(&funding).Error
}

func GetFundingTransactions(ctx context.Context, jobId *int) ([]*FundingTransaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if jobId != nil {
		dbCtx = dbCtx.Where("job_id = ?", *jobId)
	}

	var rows []*FundingTransaction
	if err := dbCtx.Order("funded_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetJobFundingSummary totals the disbursements of one job.
func GetJobFundingSummary(ctx context.Context, jobId int) (*JobFundingSummary, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	if err := utils.ValidateResourceId[Job](ctx, companyId, jobId); err != nil {
		return nil, err
	}

	var summary JobFundingSummary
	summary.JobId = jobId

	db := config.GetDB()
	err := db.WithContext(ctx).Model(&FundingTransaction{}).
		Select("COALESCE(SUM(amount), 0) as total_funded, COALESCE(SUM(retainage), 0) as total_retainage, COUNT(*) as draw_count").
		Where("company_id = ? AND job_id = ?", companyId, jobId).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

type JobFundingSummary struct {
	JobId          int             `json:"job_id"`
	TotalFunded    decimal.Decimal `json:"total_funded"`
	TotalRetainage decimal.Decimal `json:"total_retainage"`
	DrawCount      int             `json:"draw_count"`
}
