package defra

import (
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid_bae_id", "bae-abc123-def", false},
		{"valid_simple", "user_1", false},
		{"empty", "", true},
		{"injection_attempt", `") { _docID } } mutation {`, true},
		{"too_long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestQueryBuilder_Build(t *testing.T) {
	t.Run("plain query", func(t *testing.T) {
		query, vars := NewQuery("VocabularyIntegrated").Build()
		want := "{ VocabularyIntegrated { _docID } }"
		if query != want {
			t.Errorf("Build() = %q, want %q", query, want)
		}
		if len(vars) != 0 {
			t.Errorf("expected no vars, got %v", vars)
		}
	})

	t.Run("filter uses variables", func(t *testing.T) {
		query, vars := NewQuery("ParseRecord").
			Filter("owner_id", "user-1").
			Fields("_docID", "input_text").
			Build()

		if !strings.Contains(query, "query($v0: String)") {
			t.Errorf("missing variable definition: %s", query)
		}
		if !strings.Contains(query, "filter: {owner_id: {_eq: $v0}}") {
			t.Errorf("missing filter clause: %s", query)
		}
		if vars["v0"] != "user-1" {
			t.Errorf("vars = %v", vars)
		}
	})

	t.Run("like filter", func(t *testing.T) {
		query, vars := NewQuery("VocabularyIntegrated").
			FilterLike("word", "%学%").
			Build()

		if !strings.Contains(query, "word: {_like: $v0}") {
			t.Errorf("missing like clause: %s", query)
		}
		if vars["v0"] != "%学%" {
			t.Errorf("vars = %v", vars)
		}
	})

	t.Run("order limit offset", func(t *testing.T) {
		query, _ := NewQuery("StructureIntegrated").
			OrderBy("total_occurrences", "DESC").
			Limit(20).
			Offset(40).
			Build()

		for _, want := range []string{
			"order: {total_occurrences: DESC}",
			"limit: 20",
			"offset: 40",
		} {
			if !strings.Contains(query, want) {
				t.Errorf("query missing %q: %s", want, query)
			}
		}
	})

	t.Run("multiple filters share variable namespace", func(t *testing.T) {
		query, vars := NewQuery("StructureIntegrated").
			Filter("category", "conditional").
			FilterGTE("total_occurrences", 3).
			Build()

		if !strings.Contains(query, "$v0: String") || !strings.Contains(query, "$v1: Int") {
			t.Errorf("variable definitions wrong: %s", query)
		}
		if vars["v0"] != "conditional" || vars["v1"] != 3 {
			t.Errorf("vars = %v", vars)
		}
	})
}

func TestInferGraphQLType(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"s", "String"},
		{1, "Int"},
		{int64(1), "Int"},
		{1.5, "Float"},
		{true, "Boolean"},
		{nil, "String"},
	}

	for _, tt := range tests {
		if got := inferGraphQLType(tt.value); got != tt.want {
			t.Errorf("inferGraphQLType(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}
