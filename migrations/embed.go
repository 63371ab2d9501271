// Package migrations embeds the SQL schema migrations so binaries and tests
// can apply them without a checkout.
package migrations

import "embed"

// FS holds the golang-migrate up/down files.
//
//go:embed *.sql
var FS embed.FS
