// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/kotoba-app/kotoba/internal/analyze"
	"github.com/kotoba-app/kotoba/internal/config"
	"github.com/kotoba-app/kotoba/internal/defra"
	"github.com/kotoba-app/kotoba/internal/history"
	"github.com/kotoba-app/kotoba/internal/home"
	"github.com/kotoba-app/kotoba/internal/ingest"
	"github.com/kotoba-app/kotoba/internal/integrate"
	"github.com/kotoba-app/kotoba/internal/reading"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	DefraClient *defra.Client
	Config      *config.Manager
	Logger      *slog.Logger
	Home        *home.Dir
	History     *history.Store
	Vocabulary  *integrate.Service
	Structures  *integrate.Service
	Analyzer    analyze.Analyzer
	Ingestor    *ingest.Ingestor
	Reading     *reading.Analyzer
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// DefraClientFrom extracts the DefraDB client from context.
func DefraClientFrom(ctx context.Context) *defra.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefraClient
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// HistoryFrom extracts the parse-history store from context.
func HistoryFrom(ctx context.Context) *history.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.History
	}
	return nil
}

// VocabularyFrom extracts the vocabulary integration service from context.
func VocabularyFrom(ctx context.Context) *integrate.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Vocabulary
	}
	return nil
}

// StructuresFrom extracts the structure integration service from context.
func StructuresFrom(ctx context.Context) *integrate.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Structures
	}
	return nil
}

// AnalyzerFrom extracts the analyzer from context.
func AnalyzerFrom(ctx context.Context) analyze.Analyzer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Analyzer
	}
	return nil
}

// IngestorFrom extracts the ingestor from context.
func IngestorFrom(ctx context.Context) *ingest.Ingestor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ingestor
	}
	return nil
}

// ReadingFrom extracts the reading analyzer from context.
func ReadingFrom(ctx context.Context) *reading.Analyzer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Reading
	}
	return nil
}
