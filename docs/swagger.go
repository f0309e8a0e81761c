// Package docs provides Swagger documentation for the session API.
package docs

// @title Green Session Service API
// @version 1.0
// @description Refresh token rotation, session listing and revocation
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.one-green.io/support
// @contact.email support@one-green.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
