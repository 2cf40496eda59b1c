// Package migrations carries the SQL schema as embedded files, so the
// binary needs no schema directory at runtime and tests initialize the same
// schema regardless of working directory.
package migrations

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var schemaFiles embed.FS

// Schema returns every migration file concatenated in lexical order. The
// statements are idempotent; applying the result to an existing database is
// a no-op.
func Schema() (string, error) {
	entries, err := schemaFiles.ReadDir("sql")
	if err != nil {
		return "", fmt.Errorf("failed to list embedded migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		content, err := schemaFiles.ReadFile("sql/" + name)
		if err != nil {
			return "", fmt.Errorf("failed to read embedded migration %s: %w", name, err)
		}
		b.Write(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}
