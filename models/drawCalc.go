package models

import (
	"github.com/shopspring/decimal"
)

// Reconciliation between the schedule of values and the contract amount is a
// warning, not a rejection (contracts may carry unscheduled allowances).
// Mismatches within one cent are treated as equal.
var reconcileTolerance = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// CalculateDrawLine computes the derived columns of one schedule-of-values
// row from its four raw inputs and the header's retainage percentage.
// Pure and total: no error path, division by zero yields 0.
func CalculateDrawLine(line *DrawRequestLine, retainagePct decimal.Decimal) {

	line.TotalCompleted = line.PreviousApplications.
		Add(line.CurrentWork).
		Add(line.MaterialsStored)

	if line.ScheduledValue.IsPositive() {
		pct := line.TotalCompleted.Div(line.ScheduledValue).Mul(oneHundred)
		// clamp to [0, 100]; overbilled lines report 100, not >100
		if pct.IsNegative() {
			pct = decimal.Zero
		} else if pct.GreaterThan(oneHundred) {
			pct = oneHundred
		}
		line.PctComplete = pct
	} else {
		line.PctComplete = decimal.Zero
	}

	line.Retainage = line.TotalCompleted.Mul(retainagePct).Div(oneHundred)
	line.BalanceToFinish = line.ScheduledValue.Sub(line.TotalCompleted)
}

// AggregateDrawHeader folds the full line list into the header totals.
// Always a full recompute over every line, never an incremental patch,
// so cached totals cannot drift from the true sums.
//
// An empty line list yields all-zero totals except
// balance_to_finish = contract_amount.
func AggregateDrawHeader(draw *DrawRequest) {

	var totalCompleted,
		retainageAmount,
		totalPrevious,
		totalScheduled decimal.Decimal

	for i := range draw.Lines {
		line := &draw.Lines[i]
		CalculateDrawLine(line, draw.RetainagePct)

		totalCompleted = totalCompleted.Add(line.TotalCompleted)
		retainageAmount = retainageAmount.Add(line.Retainage)
		totalPrevious = totalPrevious.Add(line.PreviousApplications)
		totalScheduled = totalScheduled.Add(line.ScheduledValue)
	}

	draw.TotalCompleted = totalCompleted
	draw.RetainageAmount = retainageAmount
	draw.TotalEarned = totalCompleted.Sub(retainageAmount)
	// prior earned total, retainage-adjusted (G702 line 6 less line 7)
	draw.LessPrevious = totalPrevious.Sub(totalPrevious.Mul(draw.RetainagePct).Div(oneHundred))
	draw.CurrentDue = draw.TotalEarned.Sub(draw.LessPrevious)
	draw.BalanceToFinish = draw.ContractAmount.Sub(totalCompleted)

	draw.ReconciliationVariance = draw.ContractAmount.Sub(totalScheduled)
	draw.HasReconciliationWarning = draw.ReconciliationVariance.Abs().GreaterThan(reconcileTolerance)
}
