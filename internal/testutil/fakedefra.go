package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// FakeDefra is an in-memory stand-in for a DefraDB node. It implements the
// small slice of the HTTP/GraphQL surface the defra client uses: health
// checks, schema registration, filtered/paginated collection queries, and
// create/update/delete mutations. Tests seed it with documents and point a
// defra.Client at Server().URL.
type FakeDefra struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
	nextID      int

	// Schemas collects every schema blob posted to /api/v0/schema.
	Schemas []string
	// QueryLog records every GraphQL query string received, in order.
	QueryLog []string

	// FailCreate, when set, rejects matching create mutations with a
	// GraphQL error. Used to exercise partial-failure paths.
	FailCreate func(collection string, doc map[string]any) bool
	// FailDelete, when set, rejects matching delete mutations.
	FailDelete func(collection string, docID string) bool
}

// NewFakeDefra creates an empty fake node.
func NewFakeDefra() *FakeDefra {
	return &FakeDefra{collections: make(map[string][]map[string]any)}
}

// Server starts an httptest server for the fake node. The caller owns the
// returned server and should t.Cleanup(srv.Close).
func (f *FakeDefra) Server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health-check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v0/schema", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.Schemas = append(f.Schemas, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "{}")
	})
	mux.HandleFunc("/api/v0/graphql", f.handleGraphQL)
	return httptest.NewServer(mux)
}

// Seed inserts documents into a collection, assigning _docIDs to any
// document that lacks one.
func (f *FakeDefra) Seed(collection string, docs ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range docs {
		copied := make(map[string]any, len(doc)+1)
		for k, v := range doc {
			copied[k] = v
		}
		if _, ok := copied["_docID"]; !ok {
			f.nextID++
			copied["_docID"] = fmt.Sprintf("doc-%03d", f.nextID)
		}
		f.collections[collection] = append(f.collections[collection], copied)
	}
}

// Docs returns a copy of the documents currently in a collection.
func (f *FakeDefra) Docs(collection string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.collections[collection]))
	for _, doc := range f.collections[collection] {
		copied := make(map[string]any, len(doc))
		for k, v := range doc {
			copied[k] = v
		}
		out = append(out, copied)
	}
	return out
}

// Count returns the number of documents in a collection.
func (f *FakeDefra) Count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collections[collection])
}

func (f *FakeDefra) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.QueryLog = append(f.QueryLog, req.Query)
	f.mu.Unlock()

	query := strings.TrimSpace(req.Query)
	var data map[string]any
	var errMsg string

	switch {
	case strings.HasPrefix(query, "mutation"):
		data, errMsg = f.runMutation(query)
	default:
		data, errMsg = f.runQuery(query, req.Variables)
	}

	w.Header().Set("Content-Type", "application/json")
	if errMsg != "" {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": errMsg}},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

var (
	createRe = regexp.MustCompile(`(?s)create_(\w+)\(input:\s*(.+)\)\s*\{\s*_docID\s*\}\s*\}\s*$`)
	updateRe = regexp.MustCompile(`(?s)update_(\w+)\(docID:\s*"([^"]+)",\s*input:\s*(.+)\)\s*\{\s*_docID\s*\}\s*\}\s*$`)
	deleteRe = regexp.MustCompile(`delete_(\w+)\(docID:\s*"([^"]+)"\)`)

	queryRe  = regexp.MustCompile(`(?s)\{\s*(\w+)\s*(?:\(([^)]*)\))?\s*\{\s*([^{}]*)\}`)
	limitRe  = regexp.MustCompile(`limit:\s*(\d+)`)
	offsetRe = regexp.MustCompile(`offset:\s*(\d+)`)
	orderRe  = regexp.MustCompile(`order:\s*\{(\w+):\s*(ASC|DESC)\}`)
	filterRe = regexp.MustCompile(`(\w+):\s*\{(_eq|_like|_in|_gte|_lt):\s*\$(\w+)\}`)
)

func (f *FakeDefra) runMutation(query string) (map[string]any, string) {
	if m := createRe.FindStringSubmatch(query); m != nil {
		collection, literal := m[1], m[2]
		doc, err := parseGQLObject(literal)
		if err != nil {
			return nil, fmt.Sprintf("bad input literal: %v", err)
		}
		if f.FailCreate != nil && f.FailCreate(collection, doc) {
			return nil, "simulated create failure"
		}
		f.mu.Lock()
		f.nextID++
		docID := fmt.Sprintf("doc-%03d", f.nextID)
		doc["_docID"] = docID
		f.collections[collection] = append(f.collections[collection], doc)
		f.mu.Unlock()
		return map[string]any{
			"create_" + collection: []any{map[string]any{"_docID": docID}},
		}, ""
	}

	if m := updateRe.FindStringSubmatch(query); m != nil {
		collection, docID, literal := m[1], m[2], m[3]
		input, err := parseGQLObject(literal)
		if err != nil {
			return nil, fmt.Sprintf("bad input literal: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, doc := range f.collections[collection] {
			if doc["_docID"] == docID {
				for k, v := range input {
					doc[k] = v
				}
				return map[string]any{
					"update_" + collection: []any{map[string]any{"_docID": docID}},
				}, ""
			}
		}
		return nil, fmt.Sprintf("document not found: %s", docID)
	}

	if m := deleteRe.FindStringSubmatch(query); m != nil {
		collection, docID := m[1], m[2]
		if f.FailDelete != nil && f.FailDelete(collection, docID) {
			return nil, "simulated delete failure"
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		docs := f.collections[collection]
		for i, doc := range docs {
			if doc["_docID"] == docID {
				f.collections[collection] = append(docs[:i:i], docs[i+1:]...)
				return map[string]any{
					"delete_" + collection: []any{map[string]any{"_docID": docID}},
				}, ""
			}
		}
		return nil, fmt.Sprintf("document not found: %s", docID)
	}

	return nil, fmt.Sprintf("unsupported mutation: %s", query)
}

func (f *FakeDefra) runQuery(query string, vars map[string]any) (map[string]any, string) {
	m := queryRe.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Sprintf("unsupported query: %s", query)
	}
	collection, args, fieldList := m[1], m[2], m[3]

	f.mu.Lock()
	docs := make([]map[string]any, len(f.collections[collection]))
	copy(docs, f.collections[collection])
	f.mu.Unlock()

	for _, fm := range filterRe.FindAllStringSubmatch(args, -1) {
		field, op, varName := fm[1], fm[2], fm[3]
		value := vars[varName]
		docs = filterDocs(docs, field, op, value)
	}

	if om := orderRe.FindStringSubmatch(args); om != nil {
		sortDocs(docs, om[1], om[2] == "DESC")
	}
	if om := offsetRe.FindStringSubmatch(args); om != nil {
		n, _ := strconv.Atoi(om[1])
		if n > len(docs) {
			n = len(docs)
		}
		docs = docs[n:]
	}
	if lm := limitRe.FindStringSubmatch(args); lm != nil {
		n, _ := strconv.Atoi(lm[1])
		if n < len(docs) {
			docs = docs[:n]
		}
	}

	fields := strings.Fields(fieldList)
	out := make([]any, 0, len(docs))
	for _, doc := range docs {
		row := make(map[string]any, len(fields))
		for _, field := range fields {
			if v, ok := doc[field]; ok {
				row[field] = v
			}
		}
		out = append(out, row)
	}
	return map[string]any{collection: out}, ""
}

func filterDocs(docs []map[string]any, field, op string, value any) []map[string]any {
	kept := docs[:0:0]
	for _, doc := range docs {
		if matchFilter(doc[field], op, value) {
			kept = append(kept, doc)
		}
	}
	return kept
}

func matchFilter(have any, op string, want any) bool {
	switch op {
	case "_eq":
		hf, hok := toFloat(have)
		wf, wok := toFloat(want)
		if hok && wok {
			return hf == wf
		}
		return fmt.Sprint(have) == fmt.Sprint(want)
	case "_like":
		pattern, ok := want.(string)
		if !ok {
			return false
		}
		re := "(?s)^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), "%", ".*") + "$"
		matched, err := regexp.MatchString(re, fmt.Sprint(have))
		return err == nil && matched
	case "_in":
		list, ok := want.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if fmt.Sprint(have) == fmt.Sprint(item) {
				return true
			}
		}
		return false
	case "_gte":
		hf, hok := toFloat(have)
		wf, wok := toFloat(want)
		return hok && wok && hf >= wf
	case "_lt":
		hf, hok := toFloat(have)
		wf, wok := toFloat(want)
		return hok && wok && hf < wf
	}
	return false
}

func sortDocs(docs []map[string]any, field string, desc bool) {
	less := func(a, b map[string]any) bool {
		af, aok := toFloat(a[field])
		bf, bok := toFloat(b[field])
		if aok && bok {
			return af < bf
		}
		return fmt.Sprint(a[field]) < fmt.Sprint(b[field])
	}
	// Insertion sort keeps this dependency-free and stable.
	for i := 1; i < len(docs); i++ {
		for j := i; j > 0; j-- {
			a, b := docs[j-1], docs[j]
			swap := less(b, a)
			if desc {
				swap = less(a, b)
			}
			if !swap {
				break
			}
			docs[j-1], docs[j] = b, a
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// parseGQLObject converts a GraphQL input object literal (unquoted keys,
// JSON-encoded string values) into a map by quoting the keys and decoding
// the result as JSON.
func parseGQLObject(literal string) (map[string]any, error) {
	jsonText := quoteGQLKeys(strings.TrimSpace(literal))
	var out map[string]any
	if err := json.Unmarshal([]byte(jsonText), &out); err != nil {
		return nil, fmt.Errorf("decode %q: %w", jsonText, err)
	}
	return out, nil
}

// quoteGQLKeys rewrites bare identifiers followed by a colon into quoted
// JSON keys, leaving string contents untouched.
func quoteGQLKeys(s string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if isIdentByte(c) {
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			word := s[i:j]
			k := j
			for k < len(s) && (s[k] == ' ' || s[k] == '\t' || s[k] == '\n') {
				k++
			}
			if k < len(s) && s[k] == ':' && word != "true" && word != "false" && word != "null" {
				b.WriteByte('"')
				b.WriteString(word)
				b.WriteByte('"')
			} else {
				b.WriteString(word)
			}
			i = j - 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
