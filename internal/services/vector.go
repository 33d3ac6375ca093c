package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/repositories"
)

// ProjectVectorStore holds one point per approved project, keyed by the
// project id, so the AI path can search candidates by a student-profile
// embedding with the candidate filter pushed into the query.
type ProjectVectorStore interface {
	InitCollection() error
	UpsertProject(ctx context.Context, project *models.Project, embedding []float32) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, filter repositories.ProjectFilter, limit uint64) ([]ProjectMatch, error)
	DeleteProject(ctx context.Context, projectID uuid.UUID) error
}

type ProjectMatch struct {
	ProjectID uuid.UUID
	Score     float32
}

type projectVectorStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewProjectVectorStore(urlStr, apiKey, collectionName string) (ProjectVectorStore, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &projectVectorStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     384, // all-MiniLM-L6-v2 embedding size
	}, nil
}

// InitCollection implements ProjectVectorStore.
func (s *projectVectorStore) InitCollection() error {
	ctx := context.Background()

	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		log.Println("✅ Project vector collection already exists")
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created successfully\n", s.collectionName)
	return nil
}

// UpsertProject implements ProjectVectorStore. The point id mirrors the
// project id so re-indexing overwrites instead of duplicating.
func (s *projectVectorStore) UpsertProject(ctx context.Context, project *models.Project, embedding []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(project.ID.String()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"project_id":      project.ID.String(),
			"specialization":  project.Specialization,
			"difficulty_rank": int64(project.DifficultyLevel.Rank()),
		}),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert project vector: %w", err)
	}

	return nil
}

// SearchSimilar implements ProjectVectorStore.
func (s *projectVectorStore) SearchSimilar(ctx context.Context, queryEmbedding []float32, filter repositories.ProjectFilter, limit uint64) ([]ProjectMatch, error) {
	var must []*qdrant.Condition
	var mustNot []*qdrant.Condition

	if len(filter.IncludeSpecializations) > 0 {
		must = append(must, qdrant.NewMatchKeywords("specialization", filter.IncludeSpecializations...))
	}
	if len(filter.ExcludeSpecializations) > 0 {
		mustNot = append(mustNot, qdrant.NewMatchKeywords("specialization", filter.ExcludeSpecializations...))
	}
	if filter.MaxDifficulty != "" {
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "difficulty_rank",
					Range: &qdrant.Range{
						Lte: qdrant.PtrOf(float64(filter.MaxDifficulty.Rank())),
					},
				},
			},
		})
	}

	var queryFilter *qdrant.Filter
	if len(must) > 0 || len(mustNot) > 0 {
		queryFilter = &qdrant.Filter{Must: must, MustNot: mustNot}
	}

	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         queryFilter,
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search project vectors: %w", err)
	}

	var matches []ProjectMatch
	for _, hit := range res {
		idStr := hit.Payload["project_id"].GetStringValue()
		projectID, err := uuid.Parse(idStr)
		if err != nil {
			log.Printf("⚠️  Skipping vector hit with bad project id %q: %v\n", idStr, err)
			continue
		}
		matches = append(matches, ProjectMatch{ProjectID: projectID, Score: hit.Score})
	}

	return matches, nil
}

// DeleteProject implements ProjectVectorStore.
func (s *projectVectorStore) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(projectID.String())),
	})
	if err != nil {
		return fmt.Errorf("failed to delete project vector: %w", err)
	}
	return nil
}
