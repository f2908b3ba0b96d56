package services_test

import (
	"context"
	"testing"

	"fuzzyjoin/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithStage(ctx, "scoring")
	ctx = services.WithChunk(ctx, 3)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "scoring" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if chunk, ok := services.ChunkFromContext(ctx); !ok || chunk != 3 {
		t.Fatalf("unexpected chunk: %v %v", chunk, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.ChunkFromContext(ctx); ok {
		t.Fatal("expected no chunk value")
	}
}
