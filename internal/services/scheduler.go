package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/repositories"
)

// RefreshScheduler owns the three background jobs: stale refresh on a fixed
// interval, cache warm-up and expiry cleanup on daily cron times. Each job
// guards itself with its own running flag so an overlapping tick is skipped,
// never queued; the three jobs may run concurrently with each other.
type RefreshScheduler interface {
	Start(ctx context.Context)
	Stop()
	RunStaleRefresh(ctx context.Context) error
	RunWarmup(ctx context.Context) error
	RunCleanup(ctx context.Context) error
	ForceRefreshStudent(ctx context.Context, studentID uuid.UUID) error
	Stats(ctx context.Context) (*models.RefreshStatsResponse, error)
}

type refreshScheduler struct {
	recommender  RecommendationService
	recRepo      repositories.RecommendationRepository
	activityRepo repositories.ActivityRepository
	cache        RecommendationCache
	cfg          config.SchedulerConfig

	warmupCron  *CronExpression
	cleanupCron *CronExpression

	staleRunning   atomic.Bool
	warmupRunning  atomic.Bool
	cleanupRunning atomic.Bool

	wg       sync.WaitGroup
	stopChan chan struct{}
}

func NewRefreshScheduler(
	recommender RecommendationService,
	recRepo repositories.RecommendationRepository,
	activityRepo repositories.ActivityRepository,
	cache RecommendationCache,
	cfg config.SchedulerConfig,
) (RefreshScheduler, error) {
	warmupCron, err := ParseCron(cfg.WarmupCron)
	if err != nil {
		return nil, fmt.Errorf("invalid warm-up cron %q: %w", cfg.WarmupCron, err)
	}
	cleanupCron, err := ParseCron(cfg.CleanupCron)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup cron %q: %w", cfg.CleanupCron, err)
	}

	return &refreshScheduler{
		recommender:  recommender,
		recRepo:      recRepo,
		activityRepo: activityRepo,
		cache:        cache,
		cfg:          cfg,
		warmupCron:   warmupCron,
		cleanupCron:  cleanupCron,
		stopChan:     make(chan struct{}),
	}, nil
}

// Start implements RefreshScheduler.
func (s *refreshScheduler) Start(ctx context.Context) {
	log.Printf("🚀 Starting refresh scheduler (stale every %s, warm-up %q, cleanup %q)\n",
		s.cfg.StaleRefreshInterval, s.cfg.WarmupCron, s.cfg.CleanupCron)

	s.wg.Add(3)
	go s.runInterval(ctx, "stale-refresh", s.cfg.StaleRefreshInterval, s.RunStaleRefresh)
	go s.runCron(ctx, "cache-warmup", s.warmupCron, s.RunWarmup)
	go s.runCron(ctx, "expiry-cleanup", s.cleanupCron, s.RunCleanup)
}

// Stop implements RefreshScheduler.
func (s *refreshScheduler) Stop() {
	log.Println("🛑 Stopping refresh scheduler...")
	close(s.stopChan)
	s.wg.Wait()
	log.Println("✅ Refresh scheduler stopped")
}

func (s *refreshScheduler) runInterval(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runJob(ctx, name, job)
		}
	}
}

func (s *refreshScheduler) runCron(ctx context.Context, name string, expr *CronExpression, job func(context.Context) error) {
	defer s.wg.Done()

	for {
		next := expr.NextRun(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.runJob(ctx, name, job)
		}
	}
}

// runJob keeps a panicking or failing job from killing the scheduler loop;
// the job's own running flag is cleared by the job itself.
func (s *refreshScheduler) runJob(ctx context.Context, name string, job func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Job %s panicked: %v\n", name, r)
		}
	}()

	if err := job(ctx); err != nil {
		log.Printf("❌ Job %s failed: %v\n", name, err)
	}
}

// RunStaleRefresh implements RefreshScheduler. Re-generates recommendations
// for every student whose active result is older than the staleness
// threshold. A second invocation while one is running is a no-op.
func (s *refreshScheduler) RunStaleRefresh(ctx context.Context) error {
	if !s.staleRunning.CompareAndSwap(false, true) {
		log.Println("⚠️  Stale refresh already running, skipping this tick")
		return nil
	}
	defer s.staleRunning.Store(false)

	cutoff := time.Now().Add(-s.cfg.StalenessThreshold)
	studentIDs, err := s.recRepo.FindStaleStudentIDs(cutoff)
	if err != nil {
		return fmt.Errorf("stale refresh query failed: %w", err)
	}
	if len(studentIDs) == 0 {
		return nil
	}

	log.Printf("🔄 Stale refresh: %d students to refresh\n", len(studentIDs))
	s.refreshInBatches(ctx, studentIDs)
	return nil
}

// RunWarmup implements RefreshScheduler. Pre-generates recommendations for
// recently active students that have no cache entry.
func (s *refreshScheduler) RunWarmup(ctx context.Context) error {
	if !s.warmupRunning.CompareAndSwap(false, true) {
		log.Println("⚠️  Cache warm-up already running, skipping this tick")
		return nil
	}
	defer s.warmupRunning.Store(false)

	since := time.Now().AddDate(0, 0, -s.cfg.ActiveWindowDays)
	activeIDs, err := s.activityRepo.FindActiveStudentIDs(since)
	if err != nil {
		return fmt.Errorf("warm-up activity query failed: %w", err)
	}

	var cold []uuid.UUID
	for _, id := range activeIDs {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			log.Printf("⚠️  Warm-up cache check failed for %s: %v\n", id, err)
			continue
		}
		if cached == nil {
			cold = append(cold, id)
		}
	}
	if len(cold) == 0 {
		return nil
	}

	log.Printf("🔥 Cache warm-up: %d active students without a cache entry\n", len(cold))
	s.refreshInBatches(ctx, cold)
	return nil
}

// RunCleanup implements RefreshScheduler. Flips active records past their
// expiry to expired; nothing is deleted.
func (s *refreshScheduler) RunCleanup(ctx context.Context) error {
	if !s.cleanupRunning.CompareAndSwap(false, true) {
		log.Println("⚠️  Expiry cleanup already running, skipping this tick")
		return nil
	}
	defer s.cleanupRunning.Store(false)

	count, err := s.recRepo.MarkExpired(time.Now())
	if err != nil {
		return fmt.Errorf("expiry cleanup failed: %w", err)
	}
	if count > 0 {
		log.Printf("🧹 Expiry cleanup: %d recommendations marked expired\n", count)
	}
	return nil
}

// ForceRefreshStudent implements RefreshScheduler.
func (s *refreshScheduler) ForceRefreshStudent(ctx context.Context, studentID uuid.UUID) error {
	return s.refreshStudent(ctx, studentID)
}

// Stats implements RefreshScheduler.
func (s *refreshScheduler) Stats(ctx context.Context) (*models.RefreshStatsResponse, error) {
	cutoff := time.Now().Add(-s.cfg.StalenessThreshold)
	staleIDs, err := s.recRepo.FindStaleStudentIDs(cutoff)
	if err != nil {
		return nil, err
	}

	active, err := s.recRepo.CountByStatus(models.RecommendationActive)
	if err != nil {
		return nil, err
	}
	expired, err := s.recRepo.CountByStatus(models.RecommendationExpired)
	if err != nil {
		return nil, err
	}

	return &models.RefreshStatsResponse{
		RefreshRunning:         s.staleRunning.Load(),
		WarmupRunning:          s.warmupRunning.Load(),
		CleanupRunning:         s.cleanupRunning.Load(),
		StaleStudents:          int64(len(staleIDs)),
		ActiveRecommendations:  active,
		ExpiredRecommendations: expired,
	}, nil
}

// refreshInBatches walks the ids in fixed-size batches with a bounded worker
// pool per batch and a fixed delay between batches, so one run cannot flood
// the AI provider or the database. One student's failure never aborts the
// batch.
func (s *refreshScheduler) refreshInBatches(ctx context.Context, studentIDs []uuid.UUID) {
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	concurrency := s.cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	var refreshed, failed atomic.Int64

	for start := 0; start < len(studentIDs); start += batchSize {
		select {
		case <-s.stopChan:
			log.Println("🛑 Batch refresh interrupted by shutdown")
			return
		default:
		}

		end := start + batchSize
		if end > len(studentIDs) {
			end = len(studentIDs)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, concurrency)
		for _, id := range studentIDs[start:end] {
			wg.Add(1)
			sem <- struct{}{}
			go func(studentID uuid.UUID) {
				defer wg.Done()
				defer func() { <-sem }()

				if err := s.refreshStudent(ctx, studentID); err != nil {
					failed.Add(1)
					log.Printf("⚠️  Refresh failed for student %s: %v\n", studentID, err)
					return
				}
				refreshed.Add(1)
			}(id)
		}
		wg.Wait()

		if end < len(studentIDs) {
			select {
			case <-s.stopChan:
				return
			case <-time.After(s.cfg.BatchDelay):
			}
		}
	}

	log.Printf("✅ Batch refresh done: %d refreshed, %d failed\n", refreshed.Load(), failed.Load())
}

func (s *refreshScheduler) refreshStudent(ctx context.Context, studentID uuid.UUID) error {
	if err := s.cache.Invalidate(ctx, studentID); err != nil {
		log.Printf("⚠️  Cache invalidation failed for %s: %v\n", studentID, err)
	}

	_, err := s.recommender.GenerateRecommendations(ctx, studentID, &RecommendOptions{ForceRefresh: true})
	return err
}
