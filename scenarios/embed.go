// Package scenarios bundles the default practice scenarios.
package scenarios

import "embed"

// FS holds the bundled scenario files
//
//go:embed *.yaml
var FS embed.FS
