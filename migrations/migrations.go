// Package migrations embeds the project/subscription schema so the
// bootstrap Service can apply it without depending on a path relative to
// the process's working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
