package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func TestCategoryCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		CategoryLoader: memory.NewStaticCategoryLoader([]domain.Category{
			{ID: 9, Name: "General Knowledge"},
			{ID: 18, Name: "Science: Computers"},
		}),
	}
	cache := NewCategoryCache(newClient(mr), loader, time.Minute)

	categories, err := cache.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(categories) != 2 || loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d calls, %d categories", loader.calls, len(categories))
	}

	// Second call should hit the redis hash, loader not incremented.
	categories, err = cache.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if categories[1].ID != 18 || categories[1].Name != "Science: Computers" {
		t.Fatalf("unexpected cached categories: %+v", categories)
	}
}

type countingLoader struct {
	memory.CategoryLoader
	calls int
}

func (l *countingLoader) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	l.calls++
	return l.CategoryLoader.LoadCategories(ctx)
}
