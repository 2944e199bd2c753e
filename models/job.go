package models

import (
	"context"
	"errors"
	"time"

	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// Job is the construction project a draw request bills against.
// Draw requests snapshot ContractAmount at creation time, so later
// contract changes never rewrite an issued application.
type Job struct {
	ID             int             `gorm:"primary_key" json:"id"`
	CompanyId      string          `gorm:"index;not null" json:"company_id"`
	JobNumber      string          `gorm:"size:50;not null" json:"job_number" binding:"required"`
	Name           string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Address        string          `gorm:"type:text" json:"address"`
	LenderName     string          `gorm:"size:255" json:"lender_name"`
	ContractAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"contract_amount"`
	RetainagePct   decimal.Decimal `gorm:"type:decimal(5,2);default:10" json:"retainage_pct"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewJob struct {
	JobNumber      string          `json:"job_number" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	Address        string          `json:"address"`
	LenderName     string          `json:"lender_name"`
	ContractAmount decimal.Decimal `json:"contract_amount"`
	RetainagePct   *decimal.Decimal `json:"retainage_pct"`
}

// CostCode is a schedule-of-values cost category (CSI style numbering).
type CostCode struct {
	ID          int       `gorm:"primary_key" json:"id"`
	CompanyId   string    `gorm:"index;not null" json:"company_id"`
	Code        string    `gorm:"size:20;not null" json:"code" binding:"required"`
	Description string    `gorm:"size:255" json:"description"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCostCode struct {
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
}

func CreateJob(ctx context.Context, input *NewJob) (*Job, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if input.ContractAmount.IsNegative() {
		return nil, errors.New("contract amount must not be negative")
	}
	if err := utils.ValidateUnique[Job](ctx, companyId, "job_number", input.JobNumber, 0); err != nil {
		return nil, err
	}

	retainagePct := decimal.NewFromInt(10)
	if input.RetainagePct != nil {
		retainagePct = *input.RetainagePct
	}
	if retainagePct.IsNegative() || retainagePct.GreaterThan(oneHundred) {
		return nil, errors.New("retainage pct must be between 0 and 100")
	}

	job := Job{
		CompanyId:      companyId,
		JobNumber:      input.JobNumber,
		Name:           input.Name,
		Address:        input.Address,
		LenderName:     input.LenderName,
		ContractAmount: input.ContractAmount,
		RetainagePct:   retainagePct,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func GetJob(ctx context.Context, id int) (*Job, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	return utils.FetchModel[Job](ctx, companyId, id)
}

func GetJobs(ctx context.Context) ([]*Job, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	return utils.FetchAllModels[Job](ctx, companyId)
}

func CreateCostCode(ctx context.Context, input *NewCostCode) (*CostCode, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := utils.ValidateUnique[CostCode](ctx, companyId, "code", input.Code, 0); err != nil {
		return nil, err
	}

	costCode := CostCode{
		CompanyId:   companyId,
		Code:        input.Code,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&costCode).Error; err != nil {
		return nil, err
	}
	return &costCode, nil
}

func GetCostCodes(ctx context.Context) ([]*CostCode, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	return utils.FetchAllModels[CostCode](ctx, companyId)
}
