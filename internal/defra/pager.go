package defra

import (
	"context"
	"fmt"
)

// DefaultPageSize is the page size used for collection scans. The managed
// store caps response sizes, so scans stay at or below 100 documents per call.
const DefaultPageSize = 100

// Pager walks an entire collection in fixed-size pages. Pages are fetched
// strictly sequentially: the next page is requested only after the callback
// for the current page returns.
type Pager struct {
	client   *Client
	pageSize int
}

// NewPager creates a Pager for the given client.
// pageSize <= 0 falls back to DefaultPageSize.
func NewPager(client *Client, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{client: client, pageSize: pageSize}
}

// PageSize returns the configured page size.
func (p *Pager) PageSize() int {
	return p.pageSize
}

// Scan visits every document in the collection, invoking fn once per page
// with the requested fields. Scanning stops early if fn returns an error.
// Returns the total number of documents visited.
func (p *Pager) Scan(ctx context.Context, collection string, fields []string, fn func(docs []map[string]any) error) (int, error) {
	total := 0
	offset := 0

	for {
		q := NewQuery(collection).Fields(fields...).Limit(p.pageSize)
		if offset > 0 {
			q.Offset(offset)
		}

		resp, err := q.Execute(ctx, p.client)
		if err != nil {
			return total, fmt.Errorf("scan %s at offset %d: %w", collection, offset, err)
		}
		if errMsg := resp.Error(); errMsg != "" {
			return total, fmt.Errorf("scan %s at offset %d: %s", collection, offset, errMsg)
		}

		docs := resp.Docs(collection)
		if len(docs) == 0 {
			return total, nil
		}

		total += len(docs)
		if err := fn(docs); err != nil {
			return total, err
		}

		// A short page is the last page.
		if len(docs) < p.pageSize {
			return total, nil
		}
		offset += p.pageSize
	}
}

// Count returns the number of documents in the collection, optionally
// constrained by an equality filter. It pages through _docIDs rather than
// relying on a server-side aggregate.
func (p *Pager) Count(ctx context.Context, collection string, filterField string, filterValue any) (int, error) {
	total := 0
	offset := 0

	for {
		q := NewQuery(collection).Fields("_docID").Limit(p.pageSize)
		if filterField != "" {
			q.Filter(filterField, filterValue)
		}
		if offset > 0 {
			q.Offset(offset)
		}

		resp, err := q.Execute(ctx, p.client)
		if err != nil {
			return total, fmt.Errorf("count %s: %w", collection, err)
		}
		if errMsg := resp.Error(); errMsg != "" {
			return total, fmt.Errorf("count %s: %s", collection, errMsg)
		}

		n := len(resp.Docs(collection))
		total += n
		if n < p.pageSize {
			return total, nil
		}
		offset += p.pageSize
	}
}
