package inventory

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The report query joins three tables through aliases; a typo in any aliased
// column only surfaces at request time, so check every reference against the
// DDL in scripts/migrate.
func TestReportQueryColumnsMatchSchema(t *testing.T) {
	schema := loadSchemaColumns(t)
	source, err := os.ReadFile("repository.go")
	require.NoError(t, err)

	aliases := map[string]string{
		"t": "inventory_transactions",
		"i": "inventory_items",
		"u": "users",
	}
	ref := regexp.MustCompile(`\b([tiu])\.([a-z_]+)`)
	matches := ref.FindAllStringSubmatch(string(source), -1)
	require.NotEmpty(t, matches)

	for _, m := range matches {
		table := aliases[m[1]]
		require.Contains(t, schema[table], m[2],
			"query references %s column %q missing from schema", table, m[2])
	}
}

func loadSchemaColumns(t *testing.T) map[string]map[string]bool {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "scripts", "migrate", "main.go"))
	require.NoError(t, err)

	tables := make(map[string]map[string]bool)
	createRe := regexp.MustCompile(`CREATE TABLE IF NOT EXISTS (\w+) \(`)
	columnRe := regexp.MustCompile(`^\s*([a-z_]+)\s`)

	var current string
	for _, line := range strings.Split(string(data), "\n") {
		if m := createRe.FindStringSubmatch(line); m != nil {
			current = m[1]
			tables[current] = make(map[string]bool)
			continue
		}
		if current == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), ")") {
			current = ""
			continue
		}
		if m := columnRe.FindStringSubmatch(line); m != nil {
			tables[current][m[1]] = true
		}
	}
	require.Contains(t, tables, "users")
	require.Contains(t, tables, "inventory_transactions")
	return tables
}
