package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/models"
	"github.com/hlyanhtet/buildbooks_backend/utils"
	"github.com/hlyanhtet/buildbooks_backend/workflow"
)

// Draw request lifecycle regression harness.
//
// Covers the full approval workflow against real MySQL + Redis:
// - derived totals recomputed on every line mutation
// - role-gated transitions with compare-and-set status updates
// - append-only history
// - funding ledger written atomically with the funded transition
//
// Usage (requires Docker): INTEGRATION_TESTS=1 go test ./models -run DrawRequestLifecycle -v

func actorCtx(companyId string, userId int, name string, role models.UserRole) context.Context {
	ctx := context.Background()
	ctx = utils.SetCompanyIdInContext(ctx, companyId)
	ctx = utils.SetUserIdInContext(ctx, userId)
	ctx = utils.SetUserNameInContext(ctx, name)
	ctx = utils.SetUsernameInContext(ctx, name)
	ctx = utils.SetUserRoleInContext(ctx, string(role))
	return ctx
}

func TestDrawRequestLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "buildbooks_test")
	t.Setenv("REQUIRE_VARIANCE_ACK", "true")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	seedCtx := actorCtx("", 1, "Seed", models.UserRoleAdmin)
	company, err := models.CreateCompany(seedCtx, &models.NewCompany{Name: "Lifecycle Builders"})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}

	pmCtx := actorCtx(company.ID, 2, "PM", models.UserRolePM)
	adminCtx := actorCtx(company.ID, 3, "Admin", models.UserRoleAdmin)
	fieldCtx := actorCtx(company.ID, 4, "Field", models.UserRoleField)

	job, err := models.CreateJob(pmCtx, &models.NewJob{
		JobNumber:      "J-100",
		Name:           "Riverside Apartments",
		ContractAmount: d("20000"),
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	now := time.Now()
	draw, err := models.CreateDrawRequest(pmCtx, &models.NewDrawRequest{
		JobId:           job.ID,
		ApplicationDate: now,
		PeriodTo:        now,
	})
	if err != nil {
		t.Fatalf("CreateDrawRequest: %v", err)
	}
	if draw.DrawNumber != 1 {
		t.Fatalf("first draw number = %d, want 1", draw.DrawNumber)
	}
	if draw.CurrentStatus != models.DrawStatusDraft {
		t.Fatalf("new draw status = %s, want draft", draw.CurrentStatus)
	}
	mustEqual(t, "contract_amount snapshot", draw.ContractAmount, d("20000"))

	// schedule of values: 10000 + 9000 = 19000 against a 20000 contract
	draw, err = models.UpsertDrawRequestLine(pmCtx, draw.ID, &models.NewDrawRequestLine{
		Description:          "Sitework",
		ScheduledValue:       d("10000"),
		PreviousApplications: d("2000"),
		CurrentWork:          d("3000"),
	})
	if err != nil {
		t.Fatalf("UpsertDrawRequestLine (add 1): %v", err)
	}
	draw, err = models.UpsertDrawRequestLine(pmCtx, draw.ID, &models.NewDrawRequestLine{
		Description:          "Framing",
		ScheduledValue:       d("9000"),
		PreviousApplications: d("2000"),
		CurrentWork:          d("3000"),
	})
	if err != nil {
		t.Fatalf("UpsertDrawRequestLine (add 2): %v", err)
	}

	mustEqual(t, "total_completed", draw.TotalCompleted, d("10000"))
	mustEqual(t, "retainage_amount", draw.RetainageAmount, d("1000"))
	mustEqual(t, "total_earned", draw.TotalEarned, d("9000"))
	mustEqual(t, "less_previous", draw.LessPrevious, d("3600"))
	mustEqual(t, "current_due", draw.CurrentDue, d("5400"))
	mustEqual(t, "balance_to_finish", draw.BalanceToFinish, d("10000"))
	if !draw.HasReconciliationWarning {
		t.Fatal("expected reconciliation warning (19000 scheduled vs 20000 contract)")
	}
	mustEqual(t, "reconciliation_variance", draw.ReconciliationVariance, d("1000"))

	// persisted derivations must match the returned ones
	reloaded, err := models.GetDrawRequest(pmCtx, draw.ID)
	if err != nil {
		t.Fatalf("GetDrawRequest: %v", err)
	}
	mustEqual(t, "reloaded total_completed", reloaded.TotalCompleted, d("10000"))
	mustEqual(t, "reloaded current_due", reloaded.CurrentDue, d("5400"))

	// retainage is editable while draft and recomputes every line plus
	// the header totals
	lowered := d("5")
	draw, err = models.UpdateDrawRequest(pmCtx, draw.ID, &models.UpdateDrawRequestInput{RetainagePct: &lowered})
	if err != nil {
		t.Fatalf("UpdateDrawRequest (lower retainage): %v", err)
	}
	mustEqual(t, "retainage_amount at 5%", draw.RetainageAmount, d("500"))
	mustEqual(t, "total_earned at 5%", draw.TotalEarned, d("9500"))
	mustEqual(t, "less_previous at 5%", draw.LessPrevious, d("3800"))
	mustEqual(t, "current_due at 5%", draw.CurrentDue, d("5700"))
	for _, line := range draw.Lines {
		mustEqual(t, "line retainage at 5%", line.Retainage, d("250"))
	}
	relowered, err := models.GetDrawRequest(pmCtx, draw.ID)
	if err != nil {
		t.Fatalf("GetDrawRequest after retainage edit: %v", err)
	}
	mustEqual(t, "persisted current_due at 5%", relowered.CurrentDue, d("5700"))

	restored := d("10")
	draw, err = models.UpdateDrawRequest(pmCtx, draw.ID, &models.UpdateDrawRequestInput{RetainagePct: &restored})
	if err != nil {
		t.Fatalf("UpdateDrawRequest (restore retainage): %v", err)
	}
	mustEqual(t, "current_due restored", draw.CurrentDue, d("5400"))

	// submit below pm rank is forbidden
	if _, err := models.SubmitDrawRequest(fieldCtx, draw.ID, nil); !errors.Is(err, utils.ErrorForbidden) {
		t.Fatalf("field submit: expected forbidden, got %v", err)
	}

	// two racing submits: exactly one wins the compare-and-set
	var wg sync.WaitGroup
	submitErrs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, submitErrs[i] = models.SubmitDrawRequest(pmCtx, draw.ID, &models.SubmitDrawInput{Notes: "June billing"})
		}(i)
	}
	wg.Wait()
	var successes, conflicts int
	for _, err := range submitErrs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, utils.ErrorConflict):
			conflicts++
		default:
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("racing submits: got %d successes and %d conflicts, want 1 and 1", successes, conflicts)
	}

	// the schedule is frozen after draft
	_, err = models.UpsertDrawRequestLine(pmCtx, draw.ID, &models.NewDrawRequestLine{
		Description:    "Late addition",
		ScheduledValue: d("500"),
	})
	if !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("line add after submit: expected conflict, got %v", err)
	}
	frozen, err := models.GetDrawRequest(pmCtx, draw.ID)
	if err != nil {
		t.Fatalf("GetDrawRequest after freeze: %v", err)
	}
	if len(frozen.Lines) != 2 {
		t.Fatalf("line count changed after refused edit: %d", len(frozen.Lines))
	}
	mustEqual(t, "frozen total_completed", frozen.TotalCompleted, d("10000"))
	// the header terms freeze together with the schedule
	if _, err := models.UpdateDrawRequest(pmCtx, draw.ID, &models.UpdateDrawRequestInput{RetainagePct: &restored}); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("header edit after submit: expected conflict, got %v", err)
	}

	// approve: role gate, then variance acknowledgment gate
	if _, err := models.ApproveDrawRequest(fieldCtx, draw.ID, nil); !errors.Is(err, utils.ErrorForbidden) {
		t.Fatalf("field approve: expected forbidden, got %v", err)
	}
	if _, err := models.ApproveDrawRequest(pmCtx, draw.ID, nil); !errors.Is(err, utils.ErrorForbidden) {
		t.Fatalf("pm approve: expected forbidden, got %v", err)
	}
	if _, err := models.ApproveDrawRequest(adminCtx, draw.ID, nil); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("approve without variance ack: expected validation error, got %v", err)
	}
	draw, err = models.ApproveDrawRequest(adminCtx, draw.ID, &models.ApproveDrawInput{AcknowledgeVariance: true})
	if err != nil {
		t.Fatalf("approve with variance ack: %v", err)
	}
	if draw.CurrentStatus != models.DrawStatusApproved {
		t.Fatalf("status after approve = %s", draw.CurrentStatus)
	}
	// the immediate response carries the review stamps, not just the status
	if draw.ApprovedAt == nil || draw.ApprovedBy != 3 {
		t.Fatalf("approve response: approved_by = %d, approved_at = %v", draw.ApprovedBy, draw.ApprovedAt)
	}
	if draw.SubmittedAt == nil || draw.SubmittedBy != 2 {
		t.Fatalf("approve response: submitted_by = %d, submitted_at = %v", draw.SubmittedBy, draw.SubmittedAt)
	}

	draw, err = models.MarkDrawRequestSubmittedToLender(adminCtx, draw.ID, &models.SendToLenderInput{LenderReference: "LN-4471"})
	if err != nil {
		t.Fatalf("mark-submitted-to-lender: %v", err)
	}
	if draw.LenderReference != "LN-4471" {
		t.Fatalf("lender response: lender_reference = %q, want LN-4471", draw.LenderReference)
	}

	draw, err = workflow.FundDrawRequest(adminCtx, draw.ID)
	if err != nil {
		t.Fatalf("FundDrawRequest: %v", err)
	}
	if draw.CurrentStatus != models.DrawStatusFunded {
		t.Fatalf("status after funding = %s", draw.CurrentStatus)
	}
	// funding twice must fail on the status compare-and-set
	if _, err := workflow.FundDrawRequest(adminCtx, draw.ID); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("double funding: expected conflict, got %v", err)
	}

	// the ledger row carries the funded amount
	fundings, err := models.GetFundingTransactions(adminCtx, &job.ID)
	if err != nil {
		t.Fatalf("GetFundingTransactions: %v", err)
	}
	if len(fundings) != 1 {
		t.Fatalf("funding transaction count = %d, want 1", len(fundings))
	}
	mustEqual(t, "funded amount", fundings[0].Amount, d("5400"))
	summary, err := models.GetJobFundingSummary(adminCtx, job.ID)
	if err != nil {
		t.Fatalf("GetJobFundingSummary: %v", err)
	}
	mustEqual(t, "job total funded", summary.TotalFunded, d("5400"))

	// funded draws are never physically deleted
	if _, err := models.DeleteDrawRequest(adminCtx, draw.ID); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("delete funded draw: expected conflict, got %v", err)
	}

	// history is append-only and records the full story
	history, err := models.GetDrawRequestHistory(pmCtx, draw.ID)
	if err != nil {
		t.Fatalf("GetDrawRequestHistory: %v", err)
	}
	wantActions := []string{
		models.HistoryActionCreated,
		models.HistoryActionLineEdited,
		models.HistoryActionLineEdited,
		models.HistoryActionUpdated,
		models.HistoryActionUpdated,
		models.HistoryActionSubmitted,
		models.HistoryActionApproved,
		models.HistoryActionSentToLender,
		models.HistoryActionFunded,
	}
	if len(history) != len(wantActions) {
		t.Fatalf("history length = %d, want %d", len(history), len(wantActions))
	}
	for i, row := range history {
		if row.Action != wantActions[i] {
			t.Errorf("history[%d].Action = %s, want %s", i, row.Action, wantActions[i])
		}
	}

	// second cycle: reject, revise back to draft, then the revised draft
	// is part of the record and cannot be deleted
	second, err := models.CreateDrawRequest(pmCtx, &models.NewDrawRequest{
		JobId:           job.ID,
		ApplicationDate: now,
		PeriodTo:        now,
	})
	if err != nil {
		t.Fatalf("CreateDrawRequest (second): %v", err)
	}
	if second.DrawNumber != 2 {
		t.Fatalf("second draw number = %d, want 2", second.DrawNumber)
	}
	if _, err := models.SubmitDrawRequest(pmCtx, second.ID, nil); err != nil {
		t.Fatalf("submit second: %v", err)
	}
	if _, err := models.RejectDrawRequest(adminCtx, second.ID, &models.RejectDrawInput{}); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("reject without reason: expected validation error, got %v", err)
	}
	// the empty schedule leaves a full-contract variance, so the reject
	// must acknowledge it
	second, err = models.RejectDrawRequest(adminCtx, second.ID, &models.RejectDrawInput{
		Reason:              "missing lien waivers",
		AcknowledgeVariance: true,
	})
	if err != nil {
		t.Fatalf("reject second: %v", err)
	}
	if second.CurrentStatus != models.DrawStatusRejected {
		t.Fatalf("status after reject = %s", second.CurrentStatus)
	}
	if second.RejectionReason != "missing lien waivers" {
		t.Fatalf("reject response: rejection_reason = %q", second.RejectionReason)
	}
	second, err = models.ReviseDrawRequest(pmCtx, second.ID)
	if err != nil {
		t.Fatalf("revise second: %v", err)
	}
	if second.CurrentStatus != models.DrawStatusDraft {
		t.Fatalf("status after revise = %s", second.CurrentStatus)
	}
	if second.DrawNumber != 2 {
		t.Fatalf("revise must keep the draw number, got %d", second.DrawNumber)
	}
	// revise clears the review stamps and the rejection reason on the row
	if second.RejectionReason != "" || second.SubmittedAt != nil || second.ApprovedAt != nil {
		t.Fatalf("revise response kept stale provenance: reason=%q submitted_at=%v approved_at=%v",
			second.RejectionReason, second.SubmittedAt, second.ApprovedAt)
	}
	if _, err := models.DeleteDrawRequest(pmCtx, second.ID); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("delete revised draft: expected conflict, got %v", err)
	}

	// a draft that never left draft can be deleted
	third, err := models.CreateDrawRequest(pmCtx, &models.NewDrawRequest{
		JobId:           job.ID,
		ApplicationDate: now,
		PeriodTo:        now,
	})
	if err != nil {
		t.Fatalf("CreateDrawRequest (third): %v", err)
	}
	if third.DrawNumber != 3 {
		t.Fatalf("third draw number = %d, want 3", third.DrawNumber)
	}
	if _, err := models.DeleteDrawRequest(pmCtx, third.ID); err != nil {
		t.Fatalf("delete untouched draft: %v", err)
	}
	if _, err := models.GetDrawRequest(pmCtx, third.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("deleted draft still readable: %v", err)
	}

	// explicit draw numbers are honored only above the job's current max
	if _, err := models.CreateDrawRequest(pmCtx, &models.NewDrawRequest{
		JobId:           job.ID,
		DrawNumber:      2,
		ApplicationDate: now,
		PeriodTo:        now,
	}); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("explicit draw number at the max: expected validation error, got %v", err)
	}
	ninth, err := models.CreateDrawRequest(pmCtx, &models.NewDrawRequest{
		JobId:           job.ID,
		DrawNumber:      9,
		ApplicationDate: now,
		PeriodTo:        now,
	})
	if err != nil {
		t.Fatalf("explicit draw number above the max: %v", err)
	}
	if ninth.DrawNumber != 9 {
		t.Fatalf("explicit draw number = %d, want 9", ninth.DrawNumber)
	}
	// unique but below the max breaks monotonicity and is refused
	if _, err := models.CreateDrawRequest(pmCtx, &models.NewDrawRequest{
		JobId:           job.ID,
		DrawNumber:      5,
		ApplicationDate: now,
		PeriodTo:        now,
	}); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("explicit draw number below the max: expected validation error, got %v", err)
	}
	// the auto sequence continues above the explicit number
	tenth, err := models.CreateDrawRequest(pmCtx, &models.NewDrawRequest{
		JobId:           job.ID,
		ApplicationDate: now,
		PeriodTo:        now,
	})
	if err != nil {
		t.Fatalf("CreateDrawRequest after explicit number: %v", err)
	}
	if tenth.DrawNumber != 10 {
		t.Fatalf("auto draw number after explicit 9 = %d, want 10", tenth.DrawNumber)
	}

	// a malformed stored password hash refuses the login outright
	badHash := models.User{
		CompanyId: company.ID,
		Username:  "corrupted-hash",
		Name:      "Corrupted Hash",
		Password:  "not-a-bcrypt-hash",
		Role:      models.UserRoleField,
		IsActive:  utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(adminCtx).Create(&badHash).Error; err != nil {
		t.Fatalf("create user with malformed hash: %v", err)
	}
	if _, err := models.Login(context.Background(), "corrupted-hash", "whatever"); err == nil {
		t.Fatal("login with a malformed stored hash must fail")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("buildbooks-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("buildbooks-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=buildbooks_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
