package main

import (
	"context"
	"log"
	"os"
	"strings"

	"projecthub/recommender/internal/config"
	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/repositories"
	"projecthub/recommender/internal/services"
)

// Indexes every approved project into the vector store. Run after bulk
// catalog imports or after changing the embedding model.
func main() {
	log.Println("🚀 Starting project indexing...")

	// Load configuration
	cfg := config.Load()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	embedder := services.NewEmbeddingService(cfg.Embedding.ServiceURL, cfg.Embedding.Timeout)

	vectorStore, err := services.NewProjectVectorStore(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}
	if err := vectorStore.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	projectRepo := repositories.NewProjectRepository(db)
	projects, err := projectRepo.FindApprovedProjects(repositories.ProjectFilter{})
	if err != nil {
		log.Fatalf("❌ Failed to load approved projects: %v", err)
	}
	if len(projects) == 0 {
		log.Println("⚠️  No approved projects to index")
		return
	}

	log.Printf("📄 Loaded %d approved projects", len(projects))

	ctx := context.Background()

	// One embedding call for the whole catalog; the client batches at the
	// service's limit internally.
	texts := make([]string, len(projects))
	for i := range projects {
		texts[i] = embeddingText(&projects[i])
	}

	log.Println("🔄 Embedding project texts...")
	embeddings, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		log.Fatalf("❌ Failed to embed projects: %v", err)
	}

	successCount := 0
	failCount := 0

	for i := range projects {
		if err := vectorStore.UpsertProject(ctx, &projects[i], embeddings[i]); err != nil {
			log.Printf("   ❌ Failed to index %s: %v", projects[i].Title, err)
			failCount++
			continue
		}
		successCount++

		if successCount%25 == 0 || i == len(projects)-1 {
			log.Printf("   📊 Progress: %d/%d projects indexed", i+1, len(projects))
		}
	}

	// Summary
	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("📊 Indexing Summary:")
	log.Printf("   ✅ Successful: %d projects", successCount)
	log.Printf("   ❌ Failed: %d projects", failCount)
	log.Println(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Println("⚠️  Some projects failed to index. Please check the logs above.")
		os.Exit(1)
	}

	log.Println("✅ All projects indexed successfully!")
}

func embeddingText(project *models.Project) string {
	parts := []string{
		project.Title,
		project.Abstract,
		project.Specialization,
		strings.Join(project.TechnologyStack, ", "),
		strings.Join(project.Tags, ", "),
	}
	return strings.Join(parts, ". ")
}
