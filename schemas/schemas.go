// Package schemas embeds the OpenAPI document describing the syncd HTTP API.
// The syncd server validates every inbound request against it.
package schemas

import _ "embed"

// OpenAPISpec is the raw OpenAPI 3.0 document.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
