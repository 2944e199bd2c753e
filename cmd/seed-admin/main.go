// seed-admin creates a company and its admin user for a fresh install,
// or resets the admin password on an existing one.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/models"
	"github.com/hlyanhtet/buildbooks_backend/utils"
	"gorm.io/gorm"
)

const (
	defaultAdminUsername = "buildbooksAdmin"
	defaultAdminName     = "BuildBooks Admin"
)

func main() {
	companyName := flag.String("company", "BuildBooks Construction", "Company name to create if none exists")
	username := flag.String("username", defaultAdminUsername, "Admin username")
	password := flag.String("password", "", "Admin password (required)")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "-password is required")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetUsernameInContext(ctx, *username)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var company models.Company
	err := db.WithContext(ctx).Model(&models.Company{}).First(&company).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup company: %v\n", err)
			os.Exit(1)
		}
		created, err := models.CreateCompany(ctx, &models.NewCompany{Name: *companyName})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create company: %v\n", err)
			os.Exit(1)
		}
		company = *created
		fmt.Printf("Created company: %q (id=%s)\n", company.Name, company.ID)
	}

	ctx = utils.SetCompanyIdInContext(ctx, company.ID)

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	hashedStr := string(hashed)

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", *username).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			CompanyId: company.ID,
			Username:  *username,
			Name:      defaultAdminName,
			Password:  hashedStr,
			Role:      models.UserRoleAdmin,
			IsActive:  utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q (role=admin)\n", *username)
		return
	}

	// Update existing user: ensure password and admin role
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", *username).Updates(map[string]any{
		"password":   hashedStr,
		"is_active":  utils.NewTrue(),
		"company_id": company.ID,
		"role":       models.UserRoleAdmin,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	_ = existing.RemoveInstanceRedis()
	fmt.Printf("Updated admin user: username=%q (role=admin)\n", *username)
}
