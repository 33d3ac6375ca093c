package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RecommendationMethod string

const (
	MethodAIEmbedding       RecommendationMethod = "ai-embedding"
	MethodRuleBasedFallback RecommendationMethod = "rule-based-fallback"
)

type RecommendationStatus string

const (
	RecommendationActive  RecommendationStatus = "active"
	RecommendationExpired RecommendationStatus = "expired"
)

// SupervisorSummary is the slice of supervisor data carried inside a
// recommendation payload.
type SupervisorSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
}

// ProjectRecommendation is a single scored project inside a result.
type ProjectRecommendation struct {
	ProjectID         uuid.UUID         `json:"project_id"`
	Title             string            `json:"title"`
	Abstract          string            `json:"abstract"`
	Specialization    string            `json:"specialization"`
	DifficultyLevel   DifficultyLevel   `json:"difficulty_level"`
	SimilarityScore   float64           `json:"similarity_score"`
	MatchingSkills    []string          `json:"matching_skills"`
	MatchingInterests []string          `json:"matching_interests"`
	Reasoning         string            `json:"reasoning"`
	Supervisor        SupervisorSummary `json:"supervisor"`
}

// RecommendationList is stored as a JSONB column on the result record.
type RecommendationList []ProjectRecommendation

func (l RecommendationList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	return string(b), nil
}

func (l *RecommendationList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for recommendations: %T", value)
	}

	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}
	return nil
}

// ResultMetadata describes how a result was produced.
type ResultMetadata struct {
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	ProjectsAnalyzed int   `json:"projects_analyzed"`
	Fallback         bool  `json:"fallback"`
}

func (m ResultMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result metadata: %w", err)
	}
	return string(b), nil
}

func (m *ResultMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = ResultMetadata{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for result metadata: %T", value)
	}

	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("failed to unmarshal result metadata: %w", err)
	}
	return nil
}

// RecommendationResult is one generation for one student. A new generation
// supersedes the previous record rather than mutating it; expired records are
// flipped to RecommendationExpired by the cleanup job.
type RecommendationResult struct {
	ID                     uuid.UUID            `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StudentID              uuid.UUID            `gorm:"type:uuid;not null;index" json:"student_id"`
	Recommendations        RecommendationList   `gorm:"type:jsonb;default:'[]'" json:"recommendations"`
	AverageSimilarityScore float64              `gorm:"type:decimal(4,3)" json:"average_similarity_score"`
	Method                 RecommendationMethod `gorm:"type:text;not null" json:"method"`
	Status                 RecommendationStatus `gorm:"type:text;not null;default:'active';index" json:"status"`
	Metadata               ResultMetadata       `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	Reasoning              string               `gorm:"type:text" json:"reasoning,omitempty"`
	FromCache              bool                 `gorm:"-" json:"from_cache"`
	GeneratedAt            time.Time            `gorm:"type:timestamp;not null" json:"generated_at"`
	ExpiresAt              time.Time            `gorm:"type:timestamp;not null;index" json:"expires_at"`
	CreatedAt              time.Time            `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time            `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RecommendationResult) TableName() string {
	return "recommendation_results"
}
