package defra

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/kotoba-app/kotoba/internal/testutil"
)

func quietWriter(client *Client, batchSize int) *BulkWriter {
	return NewBulkWriter(BulkWriterConfig{
		Client:    client,
		BatchSize: batchSize,
		Attempts:  1,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestBulkWriterCreateAll(t *testing.T) {
	fake := testutil.NewFakeDefra()
	srv := fake.Server()
	t.Cleanup(srv.Close)

	docs := make([]map[string]any, 23)
	for i := range docs {
		docs[i] = map[string]any{
			"word":    fmt.Sprintf("word-%02d", i),
			"romaji":  "kana",
			"meaning": "test entry",
		}
	}

	writer := quietWriter(NewClient(srv.URL), 10)
	result := writer.CreateAll(context.Background(), "VocabularyIntegrated", docs, func(i int) string {
		return docs[i]["word"].(string)
	})

	if result.Succeeded != 23 {
		t.Errorf("Succeeded = %d, want 23", result.Succeeded)
	}
	if len(result.Failures) != 0 {
		t.Errorf("unexpected failures: %+v", result.Failures)
	}
	if got := fake.Count("VocabularyIntegrated"); got != 23 {
		t.Errorf("store holds %d docs, want 23", got)
	}
}

func TestBulkWriterCreateAllPartialFailure(t *testing.T) {
	fake := testutil.NewFakeDefra()
	srv := fake.Server()
	t.Cleanup(srv.Close)

	fake.FailCreate = func(collection string, doc map[string]any) bool {
		return doc["word"] == "word-03" || doc["word"] == "word-07"
	}

	docs := make([]map[string]any, 10)
	for i := range docs {
		docs[i] = map[string]any{"word": fmt.Sprintf("word-%02d", i)}
	}

	writer := quietWriter(NewClient(srv.URL), 4)
	result := writer.CreateAll(context.Background(), "VocabularyIntegrated", docs, func(i int) string {
		return docs[i]["word"].(string)
	})

	if result.Succeeded != 8 {
		t.Errorf("Succeeded = %d, want 8", result.Succeeded)
	}
	if len(result.Failures) != 2 {
		t.Fatalf("got %d failures, want 2: %+v", len(result.Failures), result.Failures)
	}
	failed := map[string]bool{}
	for _, f := range result.Failures {
		failed[f.Key] = true
	}
	if !failed["word-03"] || !failed["word-07"] {
		t.Errorf("failure keys = %v, want word-03 and word-07", failed)
	}
	// The rest of the run is not aborted by individual failures.
	if got := fake.Count("VocabularyIntegrated"); got != 8 {
		t.Errorf("store holds %d docs, want 8", got)
	}
}

func TestBulkWriterDeleteAll(t *testing.T) {
	fake := testutil.NewFakeDefra()
	srv := fake.Server()
	t.Cleanup(srv.Close)

	var ids []string
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("doc-%03d", i+1)
		fake.Seed("VocabularyIntegrated", map[string]any{"_docID": id, "word": fmt.Sprintf("w%d", i)})
		ids = append(ids, id)
	}

	writer := quietWriter(NewClient(srv.URL), 10)
	result := writer.DeleteAll(context.Background(), "VocabularyIntegrated", ids)

	if result.Succeeded != 15 {
		t.Errorf("Succeeded = %d, want 15", result.Succeeded)
	}
	if got := fake.Count("VocabularyIntegrated"); got != 0 {
		t.Errorf("store holds %d docs, want 0", got)
	}
}

func TestBulkWriterClear(t *testing.T) {
	t.Run("multiple pages", func(t *testing.T) {
		fake := testutil.NewFakeDefra()
		srv := fake.Server()
		t.Cleanup(srv.Close)

		for i := 0; i < 35; i++ {
			fake.Seed("StructureIntegrated", map[string]any{"structure": fmt.Sprintf("s%d", i)})
		}

		writer := quietWriter(NewClient(srv.URL), 10)
		deleted, result := writer.Clear(context.Background(), "StructureIntegrated", 10)

		if deleted != 35 {
			t.Errorf("deleted = %d, want 35", deleted)
		}
		if len(result.Failures) != 0 {
			t.Errorf("unexpected failures: %+v", result.Failures)
		}
		if got := fake.Count("StructureIntegrated"); got != 0 {
			t.Errorf("store holds %d docs, want 0", got)
		}
	})

	t.Run("empty collection", func(t *testing.T) {
		fake := testutil.NewFakeDefra()
		srv := fake.Server()
		t.Cleanup(srv.Close)

		writer := quietWriter(NewClient(srv.URL), 10)
		deleted, result := writer.Clear(context.Background(), "StructureIntegrated", 10)
		if deleted != 0 || len(result.Failures) != 0 {
			t.Errorf("deleted = %d, failures = %+v, want clean empty run", deleted, result.Failures)
		}
	})

	t.Run("stops when nothing can be deleted", func(t *testing.T) {
		fake := testutil.NewFakeDefra()
		srv := fake.Server()
		t.Cleanup(srv.Close)

		for i := 0; i < 5; i++ {
			fake.Seed("StructureIntegrated", map[string]any{"structure": fmt.Sprintf("s%d", i)})
		}
		fake.FailDelete = func(string, string) bool { return true }

		writer := quietWriter(NewClient(srv.URL), 10)
		deleted, result := writer.Clear(context.Background(), "StructureIntegrated", 10)

		if deleted != 0 {
			t.Errorf("deleted = %d, want 0", deleted)
		}
		if len(result.Failures) == 0 {
			t.Error("expected failures when every delete is rejected")
		}
		// The loop must terminate instead of re-fetching the same page forever.
		if got := fake.Count("StructureIntegrated"); got != 5 {
			t.Errorf("store holds %d docs, want 5", got)
		}
	})
}
