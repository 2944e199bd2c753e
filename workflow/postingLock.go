package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireCompanyPostingLock serializes funding postings per company across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the posting transaction.
func AcquireCompanyPostingLock(tx *gorm.DB, companyId string) error {
	lockName := fmt.Sprintf("posting:%s", companyId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for company_id=%s", companyId)
	}
	return nil
}

func ReleaseCompanyPostingLock(tx *gorm.DB, companyId string) {
	lockName := fmt.Sprintf("posting:%s", companyId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
