package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anigrab-cli/anigrab/filesystem"
	"github.com/anigrab-cli/anigrab/where"
)

// AppendCatalog merges newly discovered series into the master catalog list file,
// one "[locator] Title" line per series, kept sorted by title and deduplicated
// by locator.
func AppendCatalog(series []Series) error {
	path := where.CatalogList()

	entries := make(map[string]string)
	if body, err := filesystem.API().ReadFile(path); err == nil {
		for _, line := range strings.Split(string(body), "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "[") {
				continue
			}
			end := strings.Index(line, "]")
			if end < 0 {
				continue
			}
			entries[line[1:end]] = strings.TrimSpace(line[end+1:])
		}
	}

	for _, s := range series {
		entries[s.Session] = s.Title
	}

	lines := make([]string, 0, len(entries))
	for locator, title := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s", locator, title))
	}
	sort.Slice(lines, func(i, j int) bool {
		return strings.ToLower(afterBracket(lines[i])) < strings.ToLower(afterBracket(lines[j]))
	})

	return filesystem.API().WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
}

func afterBracket(line string) string {
	if idx := strings.Index(line, "] "); idx >= 0 {
		return line[idx+2:]
	}
	return line
}
