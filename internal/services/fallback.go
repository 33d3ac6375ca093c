package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"projecthub/recommender/internal/models"
)

// Scoring weights. They sum to 1.0, so the final score needs no further
// normalization.
const (
	specializationWeight        = 0.4
	relatedSpecializationWeight = 0.2
	skillWeight                 = 0.3
	interestWeight              = 0.2
	difficultyWeight            = 0.1
)

const (
	defaultFallbackLimit    = 10
	defaultMinSimilarity    = 0.3
	minInterestTokenLength  = 3
	fallbackDisclosureNote  = "Generated by rule-based matching while AI recommendations are unavailable."
	noCandidatesReasoning   = "No approved projects were available to recommend for this student."
)

// relatedSpecializations is looked up in the student->project direction
// only. The reverse direction deliberately does not match.
var relatedSpecializations = map[string][]string{
	"software engineering":    {"web development", "mobile development", "backend development"},
	"artificial intelligence": {"machine learning", "data science", "computer vision"},
	"data science":            {"machine learning", "artificial intelligence", "big data"},
	"cybersecurity":           {"network security", "information security", "cryptography"},
	"computer networks":       {"cybersecurity", "distributed systems", "cloud computing"},
	"web development":         {"frontend development", "backend development", "full stack development"},
}

// skillSynonyms maps a student skill to technology names it should count as.
var skillSynonyms = map[string][]string{
	"javascript":       {"js", "node", "react", "vue", "angular"},
	"typescript":       {"ts", "node", "react", "angular"},
	"python":           {"py", "django", "flask", "fastapi", "pandas"},
	"java":             {"spring", "jvm"},
	"c#":               {"dotnet", ".net", "unity"},
	"go":               {"golang"},
	"machine learning": {"ml", "tensorflow", "pytorch", "scikit"},
	"databases":        {"sql", "postgresql", "mysql", "mongodb", "redis"},
	"cloud":            {"aws", "azure", "gcp", "kubernetes", "docker"},
}

// FallbackOptions configure one scoring run. Zero values take the documented
// defaults (limit 10, minimum similarity 0.3).
type FallbackOptions struct {
	Limit              int
	MinSimilarityScore *float64
}

// FallbackScorer is the deterministic, explainable scorer used whenever the
// AI path is unavailable, over budget, or disabled. It never fails: an empty
// candidate set produces an explicit empty result.
type FallbackScorer interface {
	Score(profile *models.StudentProfile, candidates []models.Project, opts FallbackOptions) *models.RecommendationResult
}

type fallbackScorer struct{}

func NewFallbackScorer() FallbackScorer {
	return &fallbackScorer{}
}

// Score implements FallbackScorer.
func (s *fallbackScorer) Score(profile *models.StudentProfile, candidates []models.Project, opts FallbackOptions) *models.RecommendationResult {
	start := time.Now()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultFallbackLimit
	}
	minScore := defaultMinSimilarity
	if opts.MinSimilarityScore != nil {
		minScore = *opts.MinSimilarityScore
	}

	result := &models.RecommendationResult{
		StudentID:   profile.ID,
		Method:      models.MethodRuleBasedFallback,
		Status:      models.RecommendationActive,
		GeneratedAt: start,
		FromCache:   false,
	}

	if len(candidates) == 0 {
		result.Reasoning = noCandidatesReasoning
		result.Recommendations = models.RecommendationList{}
		result.Metadata = models.ResultMetadata{
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			ProjectsAnalyzed: 0,
			Fallback:         true,
		}
		return result
	}

	var scored models.RecommendationList
	for i := range candidates {
		rec := s.scoreProject(profile, &candidates[i])
		if rec.SimilarityScore >= minScore {
			scored = append(scored, rec)
		}
	}

	// Descending by score; ties keep the stable input order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SimilarityScore > scored[j].SimilarityScore
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	var total float64
	for _, rec := range scored {
		total += rec.SimilarityScore
	}
	if len(scored) > 0 {
		result.AverageSimilarityScore = total / float64(len(scored))
	}
	if len(scored) == 0 {
		scored = models.RecommendationList{}
		result.Reasoning = noCandidatesReasoning
	}

	result.Recommendations = scored
	result.Metadata = models.ResultMetadata{
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		ProjectsAnalyzed: len(candidates),
		Fallback:         true,
	}

	return result
}

func (s *fallbackScorer) scoreProject(profile *models.StudentProfile, project *models.Project) models.ProjectRecommendation {
	var score float64
	var reasons []string

	// Specialization: full weight for a literal preferred specialization,
	// half of that for a related one.
	specScore := specializationScore(profile.PreferredSpecializations, project.Specialization)
	score += specScore
	switch specScore {
	case specializationWeight:
		reasons = append(reasons, fmt.Sprintf("matches your preferred specialization (%s)", project.Specialization))
	case relatedSpecializationWeight:
		reasons = append(reasons, fmt.Sprintf("is related to your preferred specializations (%s)", project.Specialization))
	}

	// Skills against the technology stack.
	matchedSkills := matchSkills(profile.Skills, project.TechnologyStack)
	if len(project.TechnologyStack) > 0 || len(matchedSkills) > 0 {
		ratio := float64(len(matchedSkills)) / float64(maxInt(1, len(project.TechnologyStack)))
		if ratio > 1 {
			ratio = 1
		}
		score += skillWeight * ratio
	}
	if len(matchedSkills) > 0 {
		reasons = append(reasons, fmt.Sprintf("uses technologies you know (%s)", strings.Join(matchedSkills, ", ")))
	}

	// Interests against tags, specialization and title/abstract tokens.
	matchedInterests := matchInterests(profile.Interests, project)
	if len(profile.Interests) > 0 {
		ratio := float64(len(matchedInterests)) / float64(maxInt(1, len(profile.Interests)))
		if ratio > 1 {
			ratio = 1
		}
		score += interestWeight * ratio
	}
	if len(matchedInterests) > 0 {
		reasons = append(reasons, fmt.Sprintf("touches your interests (%s)", strings.Join(matchedInterests, ", ")))
	}

	// Difficulty at or below the preference; no preference always matches.
	if profile.PreferredDifficulty == nil || project.DifficultyLevel.AtOrBelow(*profile.PreferredDifficulty) {
		score += difficultyWeight
		if profile.PreferredDifficulty != nil {
			reasons = append(reasons, fmt.Sprintf("fits your preferred difficulty (%s)", project.DifficultyLevel))
		}
	}

	reasoning := "This project was suggested because it " + joinReasons(reasons) + ". " + fallbackDisclosureNote
	if len(reasons) == 0 {
		reasoning = "This project is a general suggestion from the approved catalog. " + fallbackDisclosureNote
	}

	return models.ProjectRecommendation{
		ProjectID:         project.ID,
		Title:             project.Title,
		Abstract:          project.Abstract,
		Specialization:    project.Specialization,
		DifficultyLevel:   project.DifficultyLevel,
		SimilarityScore:   score,
		MatchingSkills:    matchedSkills,
		MatchingInterests: matchedInterests,
		Reasoning:         reasoning,
		Supervisor: models.SupervisorSummary{
			ID:             project.Supervisor.ID,
			Name:           project.Supervisor.Name,
			Specialization: project.Supervisor.Specialization,
		},
	}
}

// specializationScore checks the student's preferred specializations against
// the project's. The related-table lookup runs in the student->project
// direction only.
func specializationScore(preferred models.StringList, projectSpec string) float64 {
	target := strings.ToLower(strings.TrimSpace(projectSpec))
	if target == "" || len(preferred) == 0 {
		return 0
	}

	for _, p := range preferred {
		if strings.ToLower(strings.TrimSpace(p)) == target {
			return specializationWeight
		}
	}

	for _, p := range preferred {
		for _, related := range relatedSpecializations[strings.ToLower(strings.TrimSpace(p))] {
			if related == target {
				return relatedSpecializationWeight
			}
		}
	}

	return 0
}

// matchSkills returns the lower-cased student skills that fuzzy-match the
// project's technology stack: exact match, substring in either direction, or
// a synonym-table hit.
func matchSkills(skills models.StringList, stack models.StringList) []string {
	matched := []string{}
	seen := make(map[string]bool)

	for _, rawSkill := range skills {
		skill := strings.ToLower(strings.TrimSpace(rawSkill))
		if skill == "" || seen[skill] {
			continue
		}

		for _, rawTech := range stack {
			tech := strings.ToLower(strings.TrimSpace(rawTech))
			if skillMatchesTech(skill, tech) {
				matched = append(matched, skill)
				seen[skill] = true
				break
			}
		}
	}

	return matched
}

func skillMatchesTech(skill, tech string) bool {
	if skill == tech {
		return true
	}
	if strings.Contains(tech, skill) || strings.Contains(skill, tech) {
		return true
	}
	for _, synonym := range skillSynonyms[skill] {
		if synonym == tech || strings.Contains(tech, synonym) || strings.Contains(synonym, tech) {
			return true
		}
	}
	return false
}

// matchInterests checks interests against a bag built from the project's
// tags, specialization, and the lower-cased tokens of its title and
// abstract. Both sides of a containment check must be at least three
// characters.
func matchInterests(interests models.StringList, project *models.Project) []string {
	matched := []string{}
	if len(interests) == 0 {
		return matched
	}

	bag := make([]string, 0, len(project.Tags)+8)
	for _, tag := range project.Tags {
		bag = append(bag, strings.ToLower(strings.TrimSpace(tag)))
	}
	bag = append(bag, strings.ToLower(strings.TrimSpace(project.Specialization)))
	bag = append(bag, tokenize(project.Title)...)
	bag = append(bag, tokenize(project.Abstract)...)

	seen := make(map[string]bool)
	for _, rawInterest := range interests {
		interest := strings.ToLower(strings.TrimSpace(rawInterest))
		if len(interest) < minInterestTokenLength || seen[interest] {
			continue
		}

		for _, term := range bag {
			if len(term) < minInterestTokenLength {
				continue
			}
			if strings.Contains(term, interest) || strings.Contains(interest, term) {
				matched = append(matched, interest)
				seen[interest] = true
				break
			}
		}
	}

	return matched
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

func joinReasons(reasons []string) string {
	switch len(reasons) {
	case 0:
		return ""
	case 1:
		return reasons[0]
	default:
		return strings.Join(reasons[:len(reasons)-1], ", ") + " and " + reasons[len(reasons)-1]
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
