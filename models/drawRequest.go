package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DrawRequest is the G702 header: one payment application per billing
// cycle on a job. Header totals are derived from the lines and recomputed
// in full on every line change, never hand-edited.
type DrawRequest struct {
	ID         int    `gorm:"primary_key" json:"id"`
	CompanyId  string `gorm:"index;not null" json:"company_id"`
	JobId      int    `gorm:"uniqueIndex:idx_job_draw_number;not null" json:"job_id" binding:"required"`
	DrawNumber int    `gorm:"uniqueIndex:idx_job_draw_number;not null" json:"draw_number"`

	ApplicationDate time.Time `gorm:"not null" json:"application_date" binding:"required"`
	PeriodTo        time.Time `gorm:"not null" json:"period_to" binding:"required"`

	CurrentStatus DrawRequestStatus `gorm:"type:enum('draft', 'pending_review', 'approved', 'submitted_to_lender', 'funded', 'rejected');default:draft" json:"current_status"`

	// contract value snapshot at draw time; later job changes never rewrite it
	ContractAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"contract_amount"`
	RetainagePct   decimal.Decimal `gorm:"type:decimal(5,2);default:10" json:"retainage_pct"`

	// derived (recomputed, never hand-edited)
	TotalCompleted  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_completed"`
	RetainageAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"retainage_amount"`
	TotalEarned     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_earned"`
	LessPrevious    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"less_previous"`
	CurrentDue      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_due"`
	BalanceToFinish decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_to_finish"`

	// reconciliation of the schedule of values against the contract amount,
	// computed on every aggregate, never stored
	ReconciliationVariance   decimal.Decimal `gorm:"-" json:"reconciliation_variance"`
	HasReconciliationWarning bool            `gorm:"-" json:"has_reconciliation_warning"`
	VarianceAcknowledged     *bool           `gorm:"not null;default:false" json:"variance_acknowledged"`

	SubmittedBy     int        `gorm:"default:null" json:"submitted_by"`
	SubmittedAt     *time.Time `gorm:"default:null" json:"submitted_at"`
	ApprovedBy      int        `gorm:"default:null" json:"approved_by"`
	ApprovedAt      *time.Time `gorm:"default:null" json:"approved_at"`
	LenderReference string     `gorm:"size:255" json:"lender_reference"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	Notes           string     `gorm:"type:text" json:"notes"`

	Lines []DrawRequestLine `gorm:"foreignKey:DrawRequestId" json:"lines"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDrawRequest struct {
	JobId           int              `json:"job_id" binding:"required"`
	DrawNumber      int              `json:"draw_number"`
	ApplicationDate time.Time        `json:"application_date" binding:"required"`
	PeriodTo        time.Time        `json:"period_to" binding:"required"`
	ContractAmount  *decimal.Decimal `json:"contract_amount"`
	RetainagePct    *decimal.Decimal `json:"retainage_pct"`
	Notes           string           `json:"notes"`
}

// DrawRequestLine is one G703 schedule-of-values row. Lines are editable
// only while the header is draft; once the header leaves draft the whole
// schedule is frozen.
type DrawRequestLine struct {
	ID            int    `gorm:"primary_key" json:"id"`
	DrawRequestId int    `gorm:"index;not null" json:"draw_request_id"`
	CostCodeId    int    `gorm:"index;default:null" json:"cost_code_id"`
	Description   string `gorm:"size:255;not null" json:"description" binding:"required"`
	SortOrder     int    `gorm:"default:0" json:"sort_order"`

	// raw inputs
	ScheduledValue       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"scheduled_value"`
	PreviousApplications decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"previous_applications"`
	CurrentWork          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_work"`
	MaterialsStored      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"materials_stored"`

	// derived
	TotalCompleted  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_completed"`
	PctComplete     decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"pct_complete"`
	Retainage       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"retainage"`
	BalanceToFinish decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_to_finish"`

	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDrawRequestLine struct {
	LineId               int             `json:"line_id"`
	CostCodeId           int             `json:"cost_code_id"`
	Description          string          `json:"description" binding:"required"`
	SortOrder            int             `json:"sort_order"`
	ScheduledValue       decimal.Decimal `json:"scheduled_value"`
	PreviousApplications decimal.Decimal `json:"previous_applications"`
	CurrentWork          decimal.Decimal `json:"current_work"`
	MaterialsStored      decimal.Decimal `json:"materials_stored"`
	Version              int             `json:"version"`
}

func (input NewDrawRequest) validate(ctx context.Context, companyId string) error {
	if err := utils.ValidateResourceId[Job](ctx, companyId, input.JobId); err != nil {
		return fmt.Errorf("%w: job not found", utils.ErrorValidation)
	}
	if input.ContractAmount != nil && input.ContractAmount.IsNegative() {
		return fmt.Errorf("%w: contract amount must not be negative", utils.ErrorValidation)
	}
	if input.RetainagePct != nil &&
		(input.RetainagePct.IsNegative() || input.RetainagePct.GreaterThan(oneHundred)) {
		return fmt.Errorf("%w: retainage pct must be between 0 and 100", utils.ErrorValidation)
	}
	if input.PeriodTo.Before(input.ApplicationDate.AddDate(0, -1, 0)) {
		// one month of slack, lenders sometimes post-date applications
		return fmt.Errorf("%w: period end precedes application date", utils.ErrorValidation)
	}
	return nil
}

func (input NewDrawRequestLine) validate(ctx context.Context, companyId string) error {
	for name, amount := range map[string]decimal.Decimal{
		"scheduled_value":       input.ScheduledValue,
		"previous_applications": input.PreviousApplications,
		"current_work":          input.CurrentWork,
		"materials_stored":      input.MaterialsStored,
	} {
		if amount.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", utils.ErrorValidation, name)
		}
	}
	if input.CostCodeId > 0 {
		if err := utils.ValidateResourceId[CostCode](ctx, companyId, input.CostCodeId); err != nil {
			return fmt.Errorf("%w: cost code not found", utils.ErrorValidation)
		}
	}
	return nil
}

// saveDrawComputedState persists the recomputed header totals and every
// line's derived columns inside the caller's transaction. Raw line inputs
// are written by the mutation itself, this only refreshes derivations.
func saveDrawComputedState(tx *gorm.DB, draw *DrawRequest) error {

	AggregateDrawHeader(draw)

	for i := range draw.Lines {
		line := &draw.Lines[i]
		if line.ID == 0 {
			continue
		}
		err := tx.Model(&DrawRequestLine{}).Where("id = ?", line.ID).
			Updates(map[string]interface{}{
				"total_completed":   line.TotalCompleted,
				"pct_complete":      line.PctComplete,
				"retainage":         line.Retainage,
				"balance_to_finish": line.BalanceToFinish,
			}).Error
		if err != nil {
			return err
		}
	}

	return tx.Model(&DrawRequest{}).Where("id = ?", draw.ID).
		Updates(map[string]interface{}{
			"total_completed":   draw.TotalCompleted,
			"retainage_amount":  draw.RetainageAmount,
			"total_earned":      draw.TotalEarned,
			"less_previous":     draw.LessPrevious,
			"current_due":       draw.CurrentDue,
			"balance_to_finish": draw.BalanceToFinish,
		}).Error
}

// guard for line mutations; the schedule freezes when the header leaves draft
func (draw DrawRequest) checkEditable() error {
	if draw.CurrentStatus != DrawStatusDraft {
		return fmt.Errorf("%w: only draft draw requests can be edited (current status %s)",
			utils.ErrorConflict, draw.CurrentStatus)
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func CreateDrawRequest(ctx context.Context, input *NewDrawRequest) (*DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId); err != nil {
		return nil, err
	}

	job, err := utils.FetchModel[Job](ctx, companyId, input.JobId)
	if err != nil {
		return nil, err
	}

	// snapshot contract terms from the job unless the caller overrides them
	contractAmount := job.ContractAmount
	if input.ContractAmount != nil {
		contractAmount = *input.ContractAmount
	}
	retainagePct := job.RetainagePct
	if input.RetainagePct != nil {
		retainagePct = *input.RetainagePct
	}

	drawNumber := input.DrawNumber
	if drawNumber <= 0 {
		next, err := utils.NextDrawNumber(ctx, input.JobId)
		if err != nil {
			return nil, err
		}
		drawNumber = int(next)
	} else {
		// explicit numbers must keep the per-job sequence monotonic:
		// honored only above the job's current max
		var maxSoFar *int64
		if err := config.GetDB().WithContext(ctx).Table("draw_requests").
			Select("max(draw_number)").
			Where("company_id = ? AND job_id = ?", companyId, input.JobId).
			Scan(&maxSoFar).Error; err != nil {
			return nil, err
		}
		if maxSoFar != nil && int64(drawNumber) <= *maxSoFar {
			return nil, fmt.Errorf("%w: draw number %d must exceed the job's latest draw number %d",
				utils.ErrorValidation, drawNumber, *maxSoFar)
		}
	}

	db := config.GetDB()
	tx := db.Begin()
	// IMPORTANT: always rollback on early-return or panic to avoid leaking DB locks
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	draw := DrawRequest{
		CompanyId:            companyId,
		JobId:                input.JobId,
		DrawNumber:           drawNumber,
		ApplicationDate:      input.ApplicationDate,
		PeriodTo:             input.PeriodTo,
		CurrentStatus:        DrawStatusDraft,
		ContractAmount:       contractAmount,
		RetainagePct:         retainagePct,
		Notes:                input.Notes,
		VarianceAcknowledged: utils.NewFalse(),
	}
	AggregateDrawHeader(&draw)

	if err := tx.WithContext(ctx).Create(&draw).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: draw number %d already exists for job", utils.ErrorConflict, drawNumber)
		}
		return nil, err
	}

	if err := appendDrawHistory(tx.WithContext(ctx), draw.ID, HistoryActionCreated,
		"", DrawStatusDraft,
		map[string]interface{}{"draw_number": drawNumber, "job_id": input.JobId}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if input.DrawNumber > 0 {
		// advance the sequence past the explicit number; best effort, the
		// DB max fallback in NextDrawNumber covers a missed seed
		_ = utils.SeedDrawNumber(ctx, input.JobId, int64(drawNumber))
	}

	return &draw, nil
}

type UpdateDrawRequestInput struct {
	ApplicationDate *time.Time       `json:"application_date"`
	PeriodTo        *time.Time       `json:"period_to"`
	ContractAmount  *decimal.Decimal `json:"contract_amount"`
	RetainagePct    *decimal.Decimal `json:"retainage_pct"`
	Notes           *string          `json:"notes"`
}

// UpdateDrawRequest edits the header terms of a draft. A retainage_pct or
// contract_amount change recomputes every line and the header totals in
// the same transaction; once the draw leaves draft the terms are frozen
// together with the schedule.
func UpdateDrawRequest(ctx context.Context, id int, input *UpdateDrawRequestInput) (*DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	if input == nil {
		return nil, fmt.Errorf("%w: nothing to update", utils.ErrorValidation)
	}
	if input.ContractAmount != nil && input.ContractAmount.IsNegative() {
		return nil, fmt.Errorf("%w: contract amount must not be negative", utils.ErrorValidation)
	}
	if input.RetainagePct != nil &&
		(input.RetainagePct.IsNegative() || input.RetainagePct.GreaterThan(oneHundred)) {
		return nil, fmt.Errorf("%w: retainage pct must be between 0 and 100", utils.ErrorValidation)
	}

	draw, err := utils.FetchModel[DrawRequest](ctx, companyId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if err := draw.checkEditable(); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.ApplicationDate != nil {
		updates["application_date"] = *input.ApplicationDate
		draw.ApplicationDate = *input.ApplicationDate
	}
	if input.PeriodTo != nil {
		updates["period_to"] = *input.PeriodTo
		draw.PeriodTo = *input.PeriodTo
	}
	if input.ContractAmount != nil {
		updates["contract_amount"] = *input.ContractAmount
		draw.ContractAmount = *input.ContractAmount
	}
	if input.RetainagePct != nil {
		updates["retainage_pct"] = *input.RetainagePct
		draw.RetainagePct = *input.RetainagePct
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
		draw.Notes = *input.Notes
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", utils.ErrorValidation)
	}
	if draw.PeriodTo.Before(draw.ApplicationDate.AddDate(0, -1, 0)) {
		return nil, fmt.Errorf("%w: period end precedes application date", utils.ErrorValidation)
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// keyed on draft so a concurrent submit cannot interleave with the edit
	result := tx.WithContext(ctx).Model(&DrawRequest{}).
		Where("id = ? AND company_id = ? AND current_status = ?", draw.ID, companyId, DrawStatusDraft).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: draw request status changed concurrently", utils.ErrorConflict)
	}

	if err := saveDrawComputedState(tx.WithContext(ctx), draw); err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(updates))
	for column := range updates {
		changed = append(changed, column)
	}
	if err := appendDrawHistory(tx.WithContext(ctx), draw.ID, HistoryActionUpdated,
		draw.CurrentStatus, draw.CurrentStatus,
		map[string]interface{}{"changed": changed}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return draw, nil
}

// UpsertDrawRequestLine adds a line (LineId == 0) or edits an existing one.
// Refused unless the header is still draft. The whole header+line set is
// recomputed and persisted atomically with a line_edited audit row.
func UpsertDrawRequestLine(ctx context.Context, drawRequestId int, input *NewDrawRequestLine) (*DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId); err != nil {
		return nil, err
	}

	draw, err := utils.FetchModel[DrawRequest](ctx, companyId, drawRequestId, "Lines")
	if err != nil {
		return nil, err
	}
	if err := draw.checkEditable(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var edited *DrawRequestLine
	if input.LineId > 0 {
		// edit in place
		for i := range draw.Lines {
			if draw.Lines[i].ID == input.LineId {
				edited = &draw.Lines[i]
				break
			}
		}
		if edited == nil {
			return nil, utils.ErrorRecordNotFound
		}

		updates := map[string]interface{}{
			"cost_code_id":          utils.NilOrElse(input.CostCodeId == 0, input.CostCodeId),
			"description":           input.Description,
			"sort_order":            input.SortOrder,
			"scheduled_value":       input.ScheduledValue,
			"previous_applications": input.PreviousApplications,
			"current_work":          input.CurrentWork,
			"materials_stored":      input.MaterialsStored,
		}

		lineCtx := tx.WithContext(ctx).Model(&DrawRequestLine{})
		if config.UseDrawLineVersionCheck() {
			// optimistic check against concurrent draft editors
			updates["version"] = input.Version + 1
			lineCtx = lineCtx.Where("id = ? AND version = ?", edited.ID, input.Version)
		} else {
			lineCtx = lineCtx.Where("id = ?", edited.ID)
		}
		result := lineCtx.Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, fmt.Errorf("%w: line was changed by another editor", utils.ErrorConflict)
		}

		if config.UseDrawLineVersionCheck() {
			edited.Version = input.Version + 1
		}
		edited.CostCodeId = input.CostCodeId
		edited.Description = input.Description
		edited.SortOrder = input.SortOrder
		edited.ScheduledValue = input.ScheduledValue
		edited.PreviousApplications = input.PreviousApplications
		edited.CurrentWork = input.CurrentWork
		edited.MaterialsStored = input.MaterialsStored
	} else {
		line := DrawRequestLine{
			DrawRequestId:        draw.ID,
			CostCodeId:           input.CostCodeId,
			Description:          input.Description,
			SortOrder:            input.SortOrder,
			ScheduledValue:       input.ScheduledValue,
			PreviousApplications: input.PreviousApplications,
			CurrentWork:          input.CurrentWork,
			MaterialsStored:      input.MaterialsStored,
		}
		CalculateDrawLine(&line, draw.RetainagePct)
		if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
			return nil, err
		}
		draw.Lines = append(draw.Lines, line)
		edited = &draw.Lines[len(draw.Lines)-1]
	}

	if err := saveDrawComputedState(tx.WithContext(ctx), draw); err != nil {
		return nil, err
	}

	if err := appendDrawHistory(tx.WithContext(ctx), draw.ID, HistoryActionLineEdited,
		draw.CurrentStatus, draw.CurrentStatus,
		map[string]interface{}{"line_id": edited.ID, "description": edited.Description}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return draw, nil
}

// RemoveDrawRequestLine deletes one schedule row from a draft header and
// recomputes the totals over the remaining lines.
func RemoveDrawRequestLine(ctx context.Context, drawRequestId int, lineId int) (*DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	draw, err := utils.FetchModel[DrawRequest](ctx, companyId, drawRequestId, "Lines")
	if err != nil {
		return nil, err
	}
	if err := draw.checkEditable(); err != nil {
		return nil, err
	}

	lineIndex := -1
	for i := range draw.Lines {
		if draw.Lines[i].ID == lineId {
			lineIndex = i
			break
		}
	}
	if lineIndex < 0 {
		return nil, utils.ErrorRecordNotFound
	}
	removed := draw.Lines[lineIndex]

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Delete(&DrawRequestLine{}, lineId).Error; err != nil {
		return nil, err
	}
	draw.Lines = append(draw.Lines[:lineIndex], draw.Lines[lineIndex+1:]...)

	if err := saveDrawComputedState(tx.WithContext(ctx), draw); err != nil {
		return nil, err
	}

	if err := appendDrawHistory(tx.WithContext(ctx), draw.ID, HistoryActionLineEdited,
		draw.CurrentStatus, draw.CurrentStatus,
		map[string]interface{}{"line_id": removed.ID, "description": removed.Description, "removed": true}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return draw, nil
}

// DeleteDrawRequest removes a draft that never entered review. Anything that
// was ever submitted is part of the financial record and can only be
// rejected or revised, never erased.
func DeleteDrawRequest(ctx context.Context, id int) (*DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	draw, err := utils.FetchModel[DrawRequest](ctx, companyId, id, "Lines")
	if err != nil {
		return nil, err
	}
	if draw.CurrentStatus != DrawStatusDraft {
		return nil, fmt.Errorf("%w: only draft draw requests can be deleted (current status %s)",
			utils.ErrorConflict, draw.CurrentStatus)
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	submitted, err := hasSubmittedHistory(tx.WithContext(ctx), companyId, draw.ID)
	if err != nil {
		return nil, err
	}
	if submitted {
		return nil, fmt.Errorf("%w: draw request has submitted history and cannot be deleted", utils.ErrorConflict)
	}

	if err := tx.WithContext(ctx).Where("draw_request_id = ?", draw.ID).
		Delete(&DrawRequestLine{}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("company_id = ? AND draw_request_id = ?", companyId, draw.ID).
		Delete(&DrawRequestHistory{}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&DrawRequest{}, draw.ID).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return draw, nil
}

func GetDrawRequest(ctx context.Context, id int) (*DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	draw, err := utils.FetchModel[DrawRequest](ctx, companyId, id, "Lines")
	if err != nil {
		return nil, err
	}
	// refresh the in-memory derivations so responses always carry the
	// reconciliation warning state
	AggregateDrawHeader(draw)
	return draw, nil
}

func GetDrawRequests(ctx context.Context, jobId *int, status *DrawRequestStatus) ([]*DrawRequest, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: invalid draw request status %q", utils.ErrorValidation, *status)
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").
		Where("company_id = ?", companyId)
	if jobId != nil {
		dbCtx = dbCtx.Where("job_id = ?", *jobId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}

	var draws []*DrawRequest
	if err := dbCtx.Order("job_id asc, draw_number asc").Find(&draws).Error; err != nil {
		return nil, err
	}
	for _, draw := range draws {
		AggregateDrawHeader(draw)
	}
	return draws, nil
}
