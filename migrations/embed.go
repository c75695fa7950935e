// Package migrations embeds the goose SQL migrations so the binary can
// migrate without shipping files next to it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
