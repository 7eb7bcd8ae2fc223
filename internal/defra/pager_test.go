package defra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kotoba-app/kotoba/internal/testutil"
)

func seedRecords(fake *testutil.FakeDefra, n int) {
	for i := 0; i < n; i++ {
		fake.Seed("ParseRecord", map[string]any{
			"user_input": fmt.Sprintf("sentence %d", i),
			"status":     "completed",
		})
	}
}

func TestPagerScan(t *testing.T) {
	tests := []struct {
		name      string
		docs      int
		pageSize  int
		wantPages int
	}{
		{"empty collection", 0, 20, 0},
		{"single short page", 7, 20, 1},
		{"exact multiple", 40, 20, 2},
		{"partial last page", 45, 20, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeDefra()
			srv := fake.Server()
			t.Cleanup(srv.Close)
			seedRecords(fake, tt.docs)

			pager := NewPager(NewClient(srv.URL), tt.pageSize)

			pages := 0
			seen := 0
			total, err := pager.Scan(context.Background(), "ParseRecord", []string{"_docID", "user_input"}, func(docs []map[string]any) error {
				pages++
				seen += len(docs)
				return nil
			})
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			if total != tt.docs {
				t.Errorf("total = %d, want %d", total, tt.docs)
			}
			if seen != tt.docs {
				t.Errorf("callback saw %d docs, want %d", seen, tt.docs)
			}
			if pages != tt.wantPages {
				t.Errorf("pages = %d, want %d", pages, tt.wantPages)
			}
		})
	}
}

func TestPagerScanSequentialOffsets(t *testing.T) {
	fake := testutil.NewFakeDefra()
	srv := fake.Server()
	t.Cleanup(srv.Close)
	seedRecords(fake, 45)

	pager := NewPager(NewClient(srv.URL), 20)
	if _, err := pager.Scan(context.Background(), "ParseRecord", []string{"_docID"}, func([]map[string]any) error {
		return nil
	}); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// First request carries no offset, subsequent ones step by the page size.
	wantArgs := []string{"limit: 20", "offset: 20", "offset: 40"}
	if len(fake.QueryLog) != len(wantArgs) {
		t.Fatalf("got %d requests, want %d: %v", len(fake.QueryLog), len(wantArgs), fake.QueryLog)
	}
	for i, want := range wantArgs {
		if !strings.Contains(fake.QueryLog[i], want) {
			t.Errorf("request %d missing %q: %s", i, want, fake.QueryLog[i])
		}
	}
	if strings.Contains(fake.QueryLog[0], "offset") {
		t.Errorf("first request should not carry an offset: %s", fake.QueryLog[0])
	}
}

func TestPagerScanCallbackError(t *testing.T) {
	fake := testutil.NewFakeDefra()
	srv := fake.Server()
	t.Cleanup(srv.Close)
	seedRecords(fake, 45)

	pager := NewPager(NewClient(srv.URL), 20)

	boom := errors.New("stop here")
	pages := 0
	total, err := pager.Scan(context.Background(), "ParseRecord", []string{"_docID"}, func([]map[string]any) error {
		pages++
		if pages == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if pages != 2 {
		t.Errorf("pages = %d, want 2", pages)
	}
	if total != 40 {
		t.Errorf("total = %d, want 40", total)
	}
}

func TestPagerDefaultPageSize(t *testing.T) {
	pager := NewPager(nil, 0)
	if pager.PageSize() != DefaultPageSize {
		t.Errorf("PageSize() = %d, want %d", pager.PageSize(), DefaultPageSize)
	}
	if DefaultPageSize != 100 {
		t.Errorf("DefaultPageSize = %d, want 100", DefaultPageSize)
	}
}

func TestPagerCount(t *testing.T) {
	fake := testutil.NewFakeDefra()
	srv := fake.Server()
	t.Cleanup(srv.Close)

	for i := 0; i < 25; i++ {
		status := "completed"
		if i%5 == 0 {
			status = "failed"
		}
		fake.Seed("ParseRecord", map[string]any{
			"user_input": fmt.Sprintf("sentence %d", i),
			"status":     status,
		})
	}

	pager := NewPager(NewClient(srv.URL), 10)

	t.Run("unfiltered", func(t *testing.T) {
		n, err := pager.Count(context.Background(), "ParseRecord", "", nil)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 25 {
			t.Errorf("count = %d, want 25", n)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		n, err := pager.Count(context.Background(), "ParseRecord", "status", "failed")
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 5 {
			t.Errorf("count = %d, want 5", n)
		}
	})
}
