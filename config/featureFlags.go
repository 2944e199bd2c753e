package config

import (
	"os"
	"strings"
)

// UseDrawLineVersionCheck enables optimistic locking on draw request line edits:
// each line carries a version counter and updates are applied with
// "WHERE version = ?" so concurrent draft editors get a conflict instead of a lost update.
//
// Set via env:
// - DRAW_LINE_VERSION_CHECK=true
func UseDrawLineVersionCheck() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DRAW_LINE_VERSION_CHECK")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// RequireVarianceAcknowledgment controls whether approve/reject on a draw whose
// schedule-of-values total does not reconcile with the contract amount must carry
// an explicit variance_acknowledged flag.
//
// Defaults to ON; set REQUIRE_VARIANCE_ACK=false to relax (demo/staging only).
func RequireVarianceAcknowledgment() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("REQUIRE_VARIANCE_ACK")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
