// Package docs provides generated OpenAPI documentation.
//
// Kotoba API
//
//	@title			Kotoba API
//	@version		1.0
//	@description	Japanese learning backend API for sentence analysis, parse history, and vocabulary integration.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/kotoba-app/kotoba
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/kotoba/serve.go -o ./swagger --parseDependency --parseInternal
