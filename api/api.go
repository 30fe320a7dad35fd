// Package api хранит описание HTTP API в формате OpenAPI.
package api

import _ "embed"

// OpenAPI — описание API, которое отдаётся Swagger UI.
//
//go:embed openapi.json
var OpenAPI []byte
