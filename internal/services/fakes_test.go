package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/repositories"
)

type fakeStudentRepo struct {
	profiles map[uuid.UUID]*models.StudentProfile
}

func (f *fakeStudentRepo) FindProfile(id uuid.UUID) (*models.StudentProfile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return nil, models.ErrStudentNotFound
	}
	return profile, nil
}

type fakeProjectRepo struct {
	projects []models.Project
	err      error
}

func (f *fakeProjectRepo) FindApprovedProjects(_ repositories.ProjectFilter) ([]models.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.projects, nil
}

func (f *fakeProjectRepo) FindByID(id uuid.UUID) (*models.Project, error) {
	for i := range f.projects {
		if f.projects[i].ID == id {
			return &f.projects[i], nil
		}
	}
	return nil, models.ErrProjectNotFound
}

type fakeRecRepo struct {
	mu           sync.Mutex
	created      []*models.RecommendationResult
	staleIDs     []uuid.UUID
	expiredCount int64
	counts       map[models.RecommendationStatus]int64
}

func (f *fakeRecRepo) Create(result *models.RecommendationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, result)
	return nil
}

func (f *fakeRecRepo) FindActiveByStudent(_ uuid.UUID) (*models.RecommendationResult, error) {
	return nil, nil
}

func (f *fakeRecRepo) FindStaleStudentIDs(_ time.Time) ([]uuid.UUID, error) {
	return f.staleIDs, nil
}

func (f *fakeRecRepo) MarkExpired(_ time.Time) (int64, error) {
	return f.expiredCount, nil
}

func (f *fakeRecRepo) CountByStatus(status models.RecommendationStatus) (int64, error) {
	return f.counts[status], nil
}

func (f *fakeRecRepo) createdResults() []*models.RecommendationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.RecommendationResult, len(f.created))
	copy(out, f.created)
	return out
}

type fakeFeedbackRepo struct {
	created []*models.RecommendationFeedback
	agg     *repositories.FeedbackAggregate
	err     error
}

func (f *fakeFeedbackRepo) Create(feedback *models.RecommendationFeedback) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, feedback)
	return nil
}

func (f *fakeFeedbackRepo) AggregateWindow(_, _ time.Time) (*repositories.FeedbackAggregate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.agg, nil
}

type fakeActivityRepo struct {
	views     []*models.ProjectView
	activeIDs []uuid.UUID
}

func (f *fakeActivityRepo) RecordView(view *models.ProjectView) error {
	f.views = append(f.views, view)
	return nil
}

func (f *fakeActivityRepo) FindActiveStudentIDs(_ time.Time) ([]uuid.UUID, error) {
	return f.activeIDs, nil
}

// fakeRouter stands in for the full model router in orchestrator tests.
// embedFn maps an input text to its vector; the default is a unit vector so
// every cosine similarity comes out 1.0.
type fakeRouter struct {
	embedFn     func(text string) []float32
	embedErr    error
	chatContent string
	chatErr     error

	mu         sync.Mutex
	embedCalls int
	chatCalls  int
}

func (f *fakeRouter) SelectOptimalModel(_ context.Context, _ string, _ []ChatMessage, _ *RouteOptions) (*ModelSelection, error) {
	return &ModelSelection{Model: DefaultModelCatalog()[0]}, nil
}

func (f *fakeRouter) RouteChat(_ context.Context, _ *ChatRequest, _ *ModelSelection, _ string) (*ChatResponse, error) {
	f.mu.Lock()
	f.chatCalls++
	f.mu.Unlock()
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	content := f.chatContent
	if content == "" {
		content = "These projects align with the student's skills."
	}
	return &ChatResponse{Content: content, Usage: ChatUsage{TotalTokens: 20}}, nil
}

func (f *fakeRouter) RouteEmbedding(_ context.Context, texts []string, _ string) ([][]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if f.embedFn != nil {
			out[i] = f.embedFn(text)
		} else {
			out[i] = []float32{1, 0, 0}
		}
	}
	return out, nil
}

func (f *fakeRouter) HandleModelFailure(ctx context.Context, _ string, req *ChatRequest, userID string) (*ChatResponse, error) {
	return f.RouteChat(ctx, req, &ModelSelection{}, userID)
}

func (f *fakeRouter) HealthCheck(_ context.Context) bool { return f.chatErr == nil }

func (f *fakeRouter) GetAvailableModels() []models.ModelDescriptor { return DefaultModelCatalog() }

func (f *fakeRouter) UpdateModelAvailability(_ string, _ bool) error { return nil }

func (f *fakeRouter) GetBudgetStatus(_ context.Context) (*models.BudgetStatus, error) {
	return &models.BudgetStatus{MonthlyLimit: 100}, nil
}

type fakeVectorStore struct {
	matches   []ProjectMatch
	searchErr error
}

func (f *fakeVectorStore) InitCollection() error { return nil }

func (f *fakeVectorStore) UpsertProject(_ context.Context, _ *models.Project, _ []float32) error {
	return nil
}

func (f *fakeVectorStore) SearchSimilar(_ context.Context, _ []float32, _ repositories.ProjectFilter, _ uint64) ([]ProjectMatch, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.matches, nil
}

func (f *fakeVectorStore) DeleteProject(_ context.Context, _ uuid.UUID) error { return nil }

// fakeRecommender records refresh calls for scheduler tests.
type fakeRecommender struct {
	mu      sync.Mutex
	calls   []uuid.UUID
	failFor map[uuid.UUID]error
	delay   time.Duration
}

func (f *fakeRecommender) GenerateRecommendations(_ context.Context, studentID uuid.UUID, _ *RecommendOptions) (*models.RecommendationResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, studentID)
	f.mu.Unlock()
	if err, ok := f.failFor[studentID]; ok {
		return nil, err
	}
	return &models.RecommendationResult{StudentID: studentID}, nil
}

func (f *fakeRecommender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
