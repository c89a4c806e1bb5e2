// Package api holds the HTTP API contract.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3 document describing the /v1 surface.
//
//go:embed openapi.yaml
var OpenAPI []byte
