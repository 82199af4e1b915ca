package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// failedHash is recorded as data hash when a run fails before any bundle was fetched.
const failedHash = "error"

// IngestionJob describes one ingestion: how to fetch a bundle and how to
// persist it. Process must be safe to call again with the same bundle.
type IngestionJob[T any] struct {
	Type    entity.IngestionType
	Source  string
	Fetch   func(ctx context.Context) (T, error)
	Process func(ctx context.Context, bundle T) (dto.IngestionCounts, error)
}

// IngestionRunner executes ingestion jobs with fingerprint based idempotency,
// retry with exponential backoff and an audit trail.
type IngestionRunner struct {
	auditRepo      repository.IngestionAuditRepository
	logger         *logger.Logger
	policy         retry.Policy
	attemptTimeout time.Duration
	now            func() time.Time
	newRunID       func() string
}

// NewIngestionRunner creates a new IngestionRunner.
func NewIngestionRunner(auditRepo repository.IngestionAuditRepository, log *logger.Logger, policy retry.Policy, attemptTimeout time.Duration) *IngestionRunner {
	return &IngestionRunner{
		auditRepo:      auditRepo,
		logger:         log,
		policy:         policy,
		attemptTimeout: attemptTimeout,
		now:            time.Now,
		newRunID:       func() string { return uuid.NewString() },
	}
}

// Fingerprint returns the SHA-256 hex digest of the canonical JSON form of bundle.
func Fingerprint(bundle any) (string, error) {
	canonical, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("failed to encode bundle: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// RunIngestion runs job: fetch, fingerprint, idempotency check, process and
// audit. The whole attempt is retried on failure. After the final failure a
// failed audit record is written and the error is returned together with the
// partial result.
func RunIngestion[T any](ctx context.Context, r *IngestionRunner, job IngestionJob[T]) (*dto.IngestionResult, error) {
	runID := r.newRunID()
	ctx = logger.WithRunID(ctx, runID)
	startedAt := r.now()

	result := &dto.IngestionResult{
		RunID:  runID,
		Type:   job.Type,
		Source: job.Source,
		State:  dto.RunStatePending,
	}
	r.logState(ctx, result)

	err := retry.Do(ctx, r.policy, func(ctx context.Context, attempt int) error {
		result.Attempts = attempt
		attemptCtx, cancel := r.attemptContext(ctx)
		defer cancel()
		return runAttempt(attemptCtx, r, job, result, startedAt)
	}, func(attempt int, err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "Ingestion attempt failed, retrying",
			logger.StringField("type", string(job.Type)),
			logger.IntField("attempt", attempt),
			logger.IntField("max_attempts", r.policy.Attempts()),
			logger.StringField("stage", string(result.State)),
			logger.Field("retry_in", wait),
			logger.ErrorField(err))
	})

	result.Duration = r.now().Sub(startedAt)
	if err == nil {
		return result, nil
	}

	result.State = dto.RunStateFailed
	result.Error = err.Error()
	r.logState(ctx, result, logger.ErrorField(err))

	hash := result.DataHash
	if hash == "" {
		hash = failedHash
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if auditErr := r.writeAudit(auditCtx, result, hash, entity.IngestionStatusFailed, startedAt, err.Error()); auditErr != nil {
		r.logger.ErrorContext(ctx, "Failed to write failed ingestion audit",
			logger.StringField("type", string(job.Type)),
			logger.StringField("data_hash", hash),
			logger.ErrorField(auditErr))
	}

	return result, fmt.Errorf("%s ingestion failed: %w", job.Type, err)
}

func runAttempt[T any](ctx context.Context, r *IngestionRunner, job IngestionJob[T], result *dto.IngestionResult, startedAt time.Time) error {
	result.State = dto.RunStateFetching
	result.Counts = dto.IngestionCounts{}
	result.DataHash = ""
	r.logState(ctx, result)

	bundle, err := job.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	hash, err := Fingerprint(bundle)
	if err != nil {
		return err
	}
	result.DataHash = hash

	exists, err := r.auditRepo.ExistsSuccess(ctx, job.Type, hash)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if exists {
		result.State = dto.RunStateSkipped
		r.logState(ctx, result, logger.StringField("data_hash", hash))
		if err := r.writeAudit(ctx, result, hash, entity.IngestionStatusSkipped, startedAt, ""); err != nil {
			return fmt.Errorf("write skipped audit: %w", err)
		}
		return nil
	}

	result.State = dto.RunStateProcessing
	r.logState(ctx, result, logger.StringField("data_hash", hash))

	counts, err := job.Process(ctx, bundle)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	result.Counts = counts

	if err := r.writeAudit(ctx, result, hash, entity.IngestionStatusSuccess, startedAt, ""); err != nil {
		return fmt.Errorf("write success audit: %w", err)
	}
	result.State = dto.RunStateSucceeded
	r.logState(ctx, result,
		logger.IntField("fetched", counts.Fetched),
		logger.IntField("inserted", counts.Inserted),
		logger.IntField("updated", counts.Updated),
		logger.IntField("skipped", counts.Skipped))
	return nil
}

func (r *IngestionRunner) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.attemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.attemptTimeout)
}

func (r *IngestionRunner) writeAudit(ctx context.Context, result *dto.IngestionResult, hash string, status entity.IngestionStatus, startedAt time.Time, errMsg string) error {
	completedAt := r.now()
	audit := &entity.IngestionAudit{
		RunID:           result.RunID,
		IngestionType:   result.Type,
		Source:          result.Source,
		DataHash:        hash,
		Status:          status,
		RecordsFetched:  result.Counts.Fetched,
		RecordsInserted: result.Counts.Inserted,
		RecordsUpdated:  result.Counts.Updated,
		RecordsSkipped:  result.Counts.Skipped,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		DurationMs:      completedAt.Sub(startedAt).Milliseconds(),
		ErrorMessage:    sql.NullString{String: errMsg, Valid: errMsg != ""},
	}
	return r.auditRepo.Create(ctx, audit)
}

func (r *IngestionRunner) logState(ctx context.Context, result *dto.IngestionResult, fields ...zap.Field) {
	fields = append([]zap.Field{
		logger.StringField("type", string(result.Type)),
		logger.StringField("source", result.Source),
		logger.StringField("state", string(result.State)),
		logger.IntField("attempt", result.Attempts),
	}, fields...)
	r.logger.InfoContext(ctx, "Ingestion state changed", fields...)
}
