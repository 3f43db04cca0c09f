// Package main provides a tool to seed the database with demo data.
//
// It creates a demo user with the default categories, a handful of
// documents and segments with tags, so search and list endpoints have
// something to chew on during development.
//
// Usage:
//
//	DATA_PATH=~/DocMark/data go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/id"
	"github.com/docmarkapp/docmark-server/internal/store"
)

var documentCount = flag.Int("documents", 4, "Number of demo documents to create")

var sampleTitles = []string{
	"Night Shift Draft",
	"The Long Road North",
	"Kitchen Stories",
	"Unsent Letters",
	"Field Notes, June",
	"The Apartment Above the Bar",
}

var sampleSentences = []string{
	"The gas station attendant wiped his hands on a rag that had seen better decades.",
	"She counted the streetlights the way other people count sheep.",
	"Rain found every hole in the roof before the landlord did.",
	"He kept the letter in his coat pocket until the ink wore thin.",
	"The dog waited at the corner long after the bus had gone.",
	"Nobody in the diner looked up when the bell over the door rang.",
	"Her laugh arrived a beat before she did, every single time.",
	"The highway hummed a note only the tired could hear.",
}

var sampleTags = []string{"texture", "foreshadowing", "rain", "found family", "slow burn", "grit"}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/DocMark/data")
	}
	dbPath := filepath.Join(dataPath, "docmark.db")

	fmt.Printf("Opening database at: %s\n", dbPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := store.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	user := ensureDemoUser(ctx, st)
	categories, err := st.ListCategories(ctx, user.ID)
	if err != nil {
		log.Fatalf("Failed to list categories: %v", err)
	}

	tagIDs := ensureDemoTags(ctx, st, user.ID)

	created := 0
	for i := 0; i < *documentCount; i++ {
		doc := seedDocument(ctx, st, user.ID, sampleTitles[i%len(sampleTitles)], i)
		if doc == nil {
			continue
		}

		numSegments := 3 + rng.Intn(4)
		offset := 0
		for j := 0; j < numSegments; j++ {
			sentence := sampleSentences[rng.Intn(len(sampleSentences))]
			cat := categories[rng.Intn(len(categories))]

			now := time.Now().UTC()
			seg := &domain.Segment{
				ID:          id.MustGenerate("seg"),
				UserID:      user.ID,
				DocumentID:  doc.ID,
				CategoryID:  cat.ID,
				StartOffset: offset,
				EndOffset:   offset + len(sentence),
				Text:        sentence,
				WordCount:   len(strings.Fields(sentence)),
				Color:       domain.DefaultPalette[rng.Intn(len(domain.DefaultPalette))],
				IsPrimary:   true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			offset += len(sentence) + 1

			var segTags []string
			for _, tagID := range tagIDs {
				if rng.Float32() < 0.3 {
					segTags = append(segTags, tagID)
				}
			}

			if err := st.CreateSegment(ctx, seg, segTags); err != nil {
				log.Printf("Failed to create segment: %v", err)
				continue
			}
			created++
		}
	}

	fmt.Printf("Seeded %d segments for user %s\n", created, user.Email)
}

func ensureDemoUser(ctx context.Context, st *store.Store) *domain.User {
	user, err := st.GetUserByGoogleID(ctx, "demo-google-id")
	if err == nil {
		fmt.Printf("Using existing demo user %s\n", user.ID)
		return user
	}

	now := time.Now().UTC()
	user = &domain.User{
		ID:        id.MustGenerate("usr"),
		GoogleID:  "demo-google-id",
		Email:     "demo@docmark.local",
		Name:      "Demo Writer",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		log.Fatalf("Failed to create demo user: %v", err)
	}

	seed := make([]*domain.Category, len(domain.DefaultCategories))
	for i, def := range domain.DefaultCategories {
		seed[i] = &domain.Category{
			ID:        id.MustGenerate("cat"),
			UserID:    user.ID,
			Name:      def.Name,
			Icon:      def.Icon,
			SortOrder: i,
			IsDefault: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if err := st.SeedDefaultCategories(ctx, user.ID, seed); err != nil {
		log.Fatalf("Failed to seed categories: %v", err)
	}

	fmt.Printf("Created demo user %s\n", user.ID)
	return user
}

func ensureDemoTags(ctx context.Context, st *store.Store, userID string) []string {
	now := time.Now().UTC()
	tags := make([]*domain.Tag, len(sampleTags))
	for i, name := range sampleTags {
		tags[i] = &domain.Tag{
			ID:        id.MustGenerate("tag"),
			UserID:    userID,
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	ids, err := st.EnsureTags(ctx, userID, tags)
	if err != nil {
		log.Fatalf("Failed to ensure tags: %v", err)
	}
	return ids
}

func seedDocument(ctx context.Context, st *store.Store, userID, title string, n int) *domain.Document {
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        id.MustGenerate("doc"),
		UserID:    userID,
		FileID:    fmt.Sprintf("demo-file-%d", n),
		Title:     title,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateDocument(ctx, doc); err != nil {
		log.Printf("Skipping document %q: %v", title, err)
		return nil
	}
	return doc
}
