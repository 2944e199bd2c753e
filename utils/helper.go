package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/hlyanhtet/buildbooks_backend/config"
)

func GetEnv(key string, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			// if not exists in map, append it, otherwise do nothing
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// return nil if boolean expression is true, else the given default
func NilOrElse[T any](b bool, elseValue T) *T {
	if b {
		return nil
	}
	return &elseValue
}

// CompanyLock obtains a best-effort redis lock scoped to a company.
// Reliability must not depend on Redis; callers that need a hard guarantee
// also serialize via MySQL advisory locks (workflow.AcquireCompanyPostingLock).
func CompanyLock(ctx context.Context, companyId string, lockType string, moduleName string, functionName string) error {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Avoid nil-pointer panics when Redis lock isn't initialized yet.
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", companyId, errors.New("redis lock is nil"))
		return errors.New("service not ready (redis lock not initialized)")
	}
	// Try to obtain a lock for the companyId
	lockKey := fmt.Sprintf("%s:%s", lockType, companyId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for companyId", companyId, err)
		return errors.New("could not obtain lock for companyId")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for companyId", companyId, err)
		return err
	}
	defer func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			config.LogError(logger, moduleName, functionName, "Failed to release lock", companyId, releaseErr)
		}
	}()
	return nil
}
