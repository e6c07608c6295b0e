package hls

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anigrab-cli/anigrab/filesystem"
	"github.com/samber/lo"
)

// manifestFilename is the concatenation manifest consumed by the assembler.
const manifestFilename = "filelist.txt"

// buildManifest writes the concatenation manifest: one line per segment in
// playlist order, each naming the corresponding local file. Every named file
// is verified to exist before the manifest is considered valid.
func buildManifest(workDir string, names []string) (string, error) {
	for _, name := range names {
		exists, err := filesystem.API().Exists(filepath.Join(workDir, name))
		if err != nil || !exists {
			return "", fmt.Errorf("%w: %s", ErrMissingSegmentFile, name)
		}
	}

	lines := lo.Map(names, func(name string, _ int) string {
		return fmt.Sprintf("file '%s'", name)
	})

	path := filepath.Join(workDir, manifestFilename)
	if err := filesystem.API().WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return "", err
	}

	return path, nil
}
