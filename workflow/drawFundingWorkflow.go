package workflow

import (
	"context"
	"errors"

	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/models"
	"github.com/hlyanhtet/buildbooks_backend/utils"
)

// FundDrawRequest marks a draw funded and posts its ledger entry.
//
// Funding touches the per-job ledger, so postings are serialized per
// company: a MySQL advisory lock is the hard guarantee, the redis lock is
// a cheap fast-path that short-circuits most contention before it reaches
// the database. The status compare-and-set inside the transition is what
// actually prevents double funding.
func FundDrawRequest(ctx context.Context, drawRequestId int) (*models.DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := utils.CompanyLock(ctx, companyId, "funding", "workflow", "FundDrawRequest"); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := AcquireCompanyPostingLock(db, companyId); err != nil {
		return nil, err
	}
	defer ReleaseCompanyPostingLock(db, companyId)

	return models.MarkDrawRequestFunded(ctx, drawRequestId)
}
