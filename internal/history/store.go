package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kotoba-app/kotoba/internal/defra"
)

// Store provides CRUD and scan access to the parse-history collection.
type Store struct {
	client *defra.Client
	pager  *defra.Pager
	logger *slog.Logger
}

// NewStore creates a Store. pageSize <= 0 uses the default scan page size.
func NewStore(client *defra.Client, pageSize int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		pager:  defra.NewPager(client, pageSize),
		logger: logger,
	}
}

// Create stores a new record and returns its document ID.
func (s *Store) Create(ctx context.Context, rec ParseRecord) (string, error) {
	doc, err := rec.ToDoc()
	if err != nil {
		return "", err
	}
	return s.client.Create(ctx, Collection, doc)
}

// Get fetches a single record by document ID.
func (s *Store) Get(ctx context.Context, docID string) (*ParseRecord, error) {
	if err := defra.ValidateID(docID); err != nil {
		return nil, err
	}

	resp, err := defra.NewQuery(Collection).
		Filter("_docID", docID).
		Fields(Fields...).
		Execute(ctx, s.client)
	if err != nil {
		return nil, err
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("get record: %s", errMsg)
	}

	docs := resp.Docs(Collection)
	if len(docs) == 0 {
		return nil, fmt.Errorf("record not found: %s", docID)
	}

	rec, err := FromDoc(docs[0])
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns records newest first, scoped to an owner when one is given.
func (s *Store) List(ctx context.Context, owner string, limit, offset int) ([]ParseRecord, error) {
	q := defra.NewQuery(Collection).
		Fields(Fields...).
		OrderBy("created_at", "DESC")
	if owner != "" {
		q.Filter("owner", owner)
	}
	if limit > 0 {
		q.Limit(limit)
	}
	if offset > 0 {
		q.Offset(offset)
	}

	resp, err := q.Execute(ctx, s.client)
	if err != nil {
		return nil, err
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("list records: %s", errMsg)
	}

	var records []ParseRecord
	for _, doc := range resp.Docs(Collection) {
		rec, err := FromDoc(doc)
		if err != nil {
			s.logger.Warn("skipping malformed record", "doc_id", rec.DocID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes a record by document ID.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := defra.ValidateID(docID); err != nil {
		return err
	}
	return s.client.Delete(ctx, Collection, docID)
}

// Count returns the total number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.pager.Count(ctx, Collection, "", nil)
}

// Scan walks the whole collection page by page, invoking fn for each
// decodable record. Malformed records are counted and skipped rather than
// aborting the scan. Returns the number of records visited and skipped.
func (s *Store) Scan(ctx context.Context, fn func(rec ParseRecord) error) (visited, skipped int, err error) {
	_, err = s.pager.Scan(ctx, Collection, Fields, func(docs []map[string]any) error {
		for _, doc := range docs {
			rec, decErr := FromDoc(doc)
			if decErr != nil {
				if errors.Is(decErr, ErrMalformed) {
					skipped++
					s.logger.Warn("skipping malformed record", "doc_id", rec.DocID, "error", decErr)
					continue
				}
				return decErr
			}
			visited++
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
	return visited, skipped, err
}
