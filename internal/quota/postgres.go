package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/libra-dev/deploy-engine/internal/apperr"
	"github.com/libra-dev/deploy-engine/internal/domain"
	"github.com/libra-dev/deploy-engine/internal/logging"
	"github.com/libra-dev/deploy-engine/internal/redislock"
	"github.com/libra-dev/deploy-engine/internal/tracing"
)

// freeRefreshLockTTL bounds how long a per-organization refresh lock is
// held before it self-expires, in case a holder dies mid-transaction.
const freeRefreshLockTTL = 5 * time.Second

// PostgresLedger implements Ledger against the subscription_limit table
// using hand-written conditional UPDATE ... RETURNING statements rather
// than building the query through squirrel (see DESIGN.md).
type PostgresLedger struct {
	db       *sql.DB
	defaults PlanDefaults
	locker   redislock.Locker
}

// NewPostgresLedger wires a Ledger against db, using defaults to reset
// FREE-tier quotas on period refresh. locker may be redislock.NoopLocker{}
// when no Redis lock is wired; refreshFreeAndDeduct's correctness never
// depends on it.
func NewPostgresLedger(db *sql.DB, defaults PlanDefaults, locker redislock.Locker) *PostgresLedger {
	return &PostgresLedger{db: db, defaults: defaults, locker: locker}
}

func (l *PostgresLedger) DeductDeploy(ctx context.Context, orgID string) (bool, error) {
	return l.deduct(ctx, orgID, "deploy_limit")
}

func (l *PostgresLedger) DeductUpload(ctx context.Context, orgID string) (bool, error) {
	return l.deduct(ctx, orgID, "upload_limit")
}

// deduct implements the priority policy: FREE tier first (refreshing an
// expired FREE period inline), then paid as the single fallback retry.
func (l *PostgresLedger) deduct(ctx context.Context, orgID, column string) (bool, error) {
	ctx, span := tracing.FromContext(ctx).Start(ctx, "quota.deduct")
	defer span.End()

	log := logging.FromContext(ctx)

	ok, err := l.tryDeductTier(ctx, orgID, tierFilterFree, column)
	if err != nil {
		tracing.RecordError(&span, "deduct free tier", err)
		return false, err
	}
	if ok {
		return true, nil
	}

	refreshed, err := l.refreshFreeAndDeduct(ctx, orgID, column)
	if err != nil {
		tracing.RecordError(&span, "refresh free tier", err)
		return false, err
	}
	if refreshed {
		return true, nil
	}

	ok, err = l.tryDeductTier(ctx, orgID, tierFilterPaid, column)
	if err != nil {
		tracing.RecordError(&span, "deduct paid tier", err)
		return false, err
	}

	if !ok {
		log.Warnf("quota exhausted for org %s on %s", orgID, column)
	}

	return ok, nil
}

// tierFilter is a SQL fragment selecting either the FREE row or the
// active non-FREE ("paid") row for an organization. Paid plan names are
// arbitrary — only FREE is a distinguished value — so the paid branch
// matches everything that isn't FREE rather than a literal name.
type tierFilter string

const (
	tierFilterFree tierFilter = "plan_name = 'FREE'"
	tierFilterPaid tierFilter = "plan_name <> 'FREE'"
)

func (l *PostgresLedger) tryDeductTier(ctx context.Context, orgID string, tier tierFilter, column string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE subscription_limit
		SET %s = %s - 1, updated_at = now()
		WHERE organization_id = $1
		  AND %s
		  AND is_active = true
		  AND %s > 0
		  AND period_end >= now()
		RETURNING %s`, column, column, tier, column, column)

	var newValue int

	err := l.db.QueryRowContext(ctx, query, orgID).Scan(&newValue)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("quota: deduct %s tier %s: %w", column, tier, err)
	}

	return true, nil
}

// refreshFreeAndDeduct advances an expired FREE row's period by whole
// months, resets quotas to plan defaults, and deducts the current request
// in the same UPDATE. Returns false, nil when the FREE row either doesn't
// exist or is not expired, meaning the caller should fall back to the
// paid tier.
func (l *PostgresLedger) refreshFreeAndDeduct(ctx context.Context, orgID, column string) (bool, error) {
	log := logging.FromContext(ctx)

	lockKey := "lock:subscription_limit:" + orgID

	acquired, err := l.locker.TryLock(ctx, lockKey, freeRefreshLockTTL)
	if err != nil {
		log.Warnf("quota: redis lock unavailable for org %s, proceeding without it: %v", orgID, err)
	}

	if acquired {
		defer func() {
			if err := l.locker.Unlock(ctx, lockKey); err != nil {
				log.Warnf("quota: failed to release redis lock for org %s: %v", orgID, err)
			}
		}()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("quota: begin refresh tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		id          string
		planID      string
		periodStart time.Time
		periodEnd   time.Time
		now         time.Time
	)

	err = tx.QueryRowContext(ctx, `
		SELECT id, plan_id, period_start, period_end, now()
		FROM subscription_limit
		WHERE organization_id = $1 AND plan_name = 'FREE' AND is_active = true
		FOR UPDATE`, orgID).
		Scan(&id, &planID, &periodStart, &periodEnd, &now)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("quota: lock free row: %w", err)
	}

	if !now.After(periodEnd) {
		return false, nil
	}

	defaults, err := l.defaults.Defaults(ctx, planID)
	if err != nil {
		return false, fmt.Errorf("quota: plan defaults for %s: %w", planID, err)
	}

	newStart, newEnd := advancePeriod(periodStart, now)

	deployLimit := defaults.DeployLimit
	uploadLimit := defaults.UploadLimit

	switch column {
	case "deploy_limit":
		deployLimit--
	case "upload_limit":
		uploadLimit--
	}

	if deployLimit < 0 || uploadLimit < 0 {
		return false, apperr.ErrQuotaExhausted
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE subscription_limit
		SET period_start = $1, period_end = $2,
		    ai_nums = $3, enhance_nums = $4,
		    upload_limit = $5, deploy_limit = $6,
		    seats = $7, project_nums = $8,
		    updated_at = now()
		WHERE id = $9`,
		newStart, newEnd,
		defaults.AINums, defaults.EnhanceNums,
		uploadLimit, deployLimit,
		defaults.Seats, defaults.ProjectNums,
		id)
	if err != nil {
		return false, fmt.Errorf("quota: refresh free row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("quota: commit refresh: %w", err)
	}

	return true, nil
}

// advancePeriod walks periodStart forward by whole months until the next
// advance would exceed now, then snaps to UTC midnight.
func advancePeriod(periodStart, now time.Time) (time.Time, time.Time) {
	start := periodStart

	for start.AddDate(0, 1, 0).Compare(now) <= 0 {
		start = start.AddDate(0, 1, 0)
	}

	y, m, d := start.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	return start, end
}

func (l *PostgresLedger) RestoreUpload(ctx context.Context, orgID string) (RestoreResult, error) {
	ctx, span := tracing.FromContext(ctx).Start(ctx, "quota.restore_upload")
	defer span.End()

	ok, planName, err := l.tryRestoreTier(ctx, orgID, tierFilterFree)
	if err != nil {
		tracing.RecordError(&span, "restore free tier", err)
		return RestoreResult{}, err
	}
	if ok {
		return RestoreResult{OK: true, RestoredTo: string(domain.TierFree), PlanName: planName}, nil
	}

	ok, planName, err = l.tryRestoreTier(ctx, orgID, tierFilterPaid)
	if err != nil {
		tracing.RecordError(&span, "restore paid tier", err)
		return RestoreResult{}, err
	}
	if ok {
		return RestoreResult{OK: true, RestoredTo: string(domain.TierPaid), PlanName: planName}, nil
	}

	return RestoreResult{OK: false}, nil
}

// tryRestoreTier increments upload_limit by one under a row lock, guarded
// by the plan cap so restoration never exceeds the plan default.
func (l *PostgresLedger) tryRestoreTier(ctx context.Context, orgID string, tier tierFilter) (bool, string, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, "", fmt.Errorf("quota: begin restore tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		id          string
		planID      string
		planName    string
		uploadLimit int
	)

	query := fmt.Sprintf(`
		SELECT id, plan_id, plan_name, upload_limit
		FROM subscription_limit
		WHERE organization_id = $1 AND %s AND is_active = true
		FOR UPDATE`, tier)

	err = tx.QueryRowContext(ctx, query, orgID).
		Scan(&id, &planID, &planName, &uploadLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("quota: lock %s row: %w", tier, err)
	}

	defaults, err := l.defaults.Defaults(ctx, planID)
	if err != nil {
		return false, "", fmt.Errorf("quota: plan defaults for %s: %w", planID, err)
	}

	if uploadLimit >= defaults.UploadLimit {
		return false, "", nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE subscription_limit
		SET upload_limit = upload_limit + 1, updated_at = now()
		WHERE id = $1`, id); err != nil {
		return false, "", fmt.Errorf("quota: restore %s row: %w", tier, err)
	}

	if err := tx.Commit(); err != nil {
		return false, "", fmt.Errorf("quota: commit restore: %w", err)
	}

	return true, planName, nil
}
