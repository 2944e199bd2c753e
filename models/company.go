package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/utils"
)

type Company struct {
	ID          string    `gorm:"primary_key;size:36" json:"id"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName string    `gorm:"size:100" json:"contact_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	// default withheld percentage applied to new draw requests
	DefaultRetainagePct float64   `gorm:"type:decimal(5,2);default:10" json:"default_retainage_pct"`
	IsActive            *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompany struct {
	Name                string  `json:"name" binding:"required"`
	ContactName         string  `json:"contact_name"`
	Email               string  `json:"email"`
	Phone               string  `json:"phone"`
	Address             string  `json:"address"`
	DefaultRetainagePct float64 `json:"default_retainage_pct"`
}

func CreateCompany(ctx context.Context, input *NewCompany) (*Company, error) {

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}

	retainage := input.DefaultRetainagePct
	if retainage <= 0 {
		retainage = 10
	}

	company := Company{
		ID:                  uuid.NewString(),
		Name:                input.Name,
		ContactName:         input.ContactName,
		Email:               input.Email,
		Phone:               input.Phone,
		Address:             input.Address,
		DefaultRetainagePct: retainage,
		IsActive:            utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func GetCompany(ctx context.Context, companyId string) (*Company, error) {
	var company Company
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ?", companyId).First(&company).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &company, nil
}
