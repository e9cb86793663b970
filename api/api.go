// Package api embeds the contract of the bundled sample service.
package api

import _ "embed"

// SampleContract is the OpenAPI document served by the sample handlers
//
//go:embed sample-oas3.yaml
var SampleContract []byte
