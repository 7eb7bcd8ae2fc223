package endpoints

import (
	"github.com/kotoba-app/kotoba/internal/api"
	"github.com/kotoba-app/kotoba/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DefraManager    *defra.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Analysis
		&AnalyzeEndpoint{},

		// Integration actions
		&VocabularyEndpoint{},
		&StructuresEndpoint{},

		// Parse history
		&ListHistoryEndpoint{},
		&GetHistoryEndpoint{},
		&DeleteHistoryEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// HistoryCommands returns endpoints grouped under the "history" CLI
// subcommand.
func HistoryCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListHistoryEndpoint{},
		&GetHistoryEndpoint{},
		&DeleteHistoryEndpoint{},
	}
}

// IntegrateCommands returns endpoints grouped under the "integrate" CLI
// subcommand.
func IntegrateCommands() []api.Endpoint {
	return []api.Endpoint{
		&VocabularyEndpoint{},
		&StructuresEndpoint{},
	}
}
