package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/clinicore/clinicore/internal/jobs"
)

// IntegrityReporter receives the counts produced by a scan. Satisfied by
// observability.Metrics.
type IntegrityReporter interface {
	SetIntegrityCounts(orphanedOverrides, danglingAssignments int)
}

// IntegrityCounts summarises one scan.
type IntegrityCounts struct {
	OrphanedOverrides    int
	DanglingAssignments  int
	InactiveRoleOverride int
}

// IntegrityStore is the read surface the scanner needs.
type IntegrityStore interface {
	CountIntegrityIssues(ctx context.Context) (IntegrityCounts, error)
}

// IntegrityScanner scans for rows the resolution engine already treats as
// inert: override rows whose activation is gone, assignment rows pointing at
// missing roles. The scan is read-only and purely diagnostic; nothing is
// cleaned up automatically because deactivation is meant to be reversible.
type IntegrityScanner struct {
	store      IntegrityStore
	reporter   IntegrityReporter
	logger     *slog.Logger
	jobMetrics *jobmetrics.Metrics
}

// NewIntegrityScanner constructs the scanner.
func NewIntegrityScanner(store IntegrityStore, reporter IntegrityReporter, logger *slog.Logger) *IntegrityScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrityScanner{store: store, reporter: reporter, logger: logger}
}

// WithJobMetrics installs run instrumentation.
func (s *IntegrityScanner) WithJobMetrics(m *jobmetrics.Metrics) *IntegrityScanner {
	s.jobMetrics = m
	return s
}

// Handle processes TaskAuthzIntegrityScan tasks.
func (s *IntegrityScanner) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := s.jobMetrics.Track("authz_integrity_scan")
	return tracker.End(s.scan(ctx))
}

func (s *IntegrityScanner) scan(ctx context.Context) error {
	counts, err := s.store.CountIntegrityIssues(ctx)
	if err != nil {
		s.logger.Error("authz integrity scan", slog.Any("error", err))
		return err
	}
	if s.reporter != nil {
		s.reporter.SetIntegrityCounts(counts.OrphanedOverrides, counts.DanglingAssignments)
	}
	s.logger.Info("authz integrity scan completed",
		slog.Int("orphaned_overrides", counts.OrphanedOverrides),
		slog.Int("dangling_assignments", counts.DanglingAssignments),
		slog.Int("inactive_role_overrides", counts.InactiveRoleOverride))
	return nil
}

// IntegrityRepository implements IntegrityStore against PostgreSQL.
type IntegrityRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrityRepository constructs the repository.
func NewIntegrityRepository(pool *pgxpool.Pool) *IntegrityRepository {
	return &IntegrityRepository{pool: pool}
}

// CountIntegrityIssues gathers all three counts in one statement.
func (r *IntegrityRepository) CountIntegrityIssues(ctx context.Context) (IntegrityCounts, error) {
	var c IntegrityCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM capability_overrides o
			 LEFT JOIN practice_roles pr ON pr.id = o.practice_role_id
			 WHERE pr.id IS NULL),
			(SELECT COUNT(*) FROM user_role_assignments a
			 LEFT JOIN practice_roles pr ON pr.id = a.practice_role_id
			 WHERE pr.id IS NULL),
			(SELECT COUNT(*) FROM capability_overrides o
			 JOIN practice_roles pr ON pr.id = o.practice_role_id
			 WHERE NOT pr.is_active)`).
		Scan(&c.OrphanedOverrides, &c.DanglingAssignments, &c.InactiveRoleOverride)
	return c, err
}
