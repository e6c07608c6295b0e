package provider

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/anigrab-cli/anigrab/filesystem"
)

// manifestName is the per-series source manifest filename, hidden beside the episode files.
const manifestName = ".source.json"

// sourceManifest is the on-disk shape of a per-series episode listing.
type sourceManifest struct {
	Data []EpisodeRecord `json:"data"`
}

// ReadManifest loads the persisted episode listing from a series directory.
func ReadManifest(dir string) ([]EpisodeRecord, error) {
	body, err := filesystem.API().ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, err
	}

	var manifest sourceManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, err
	}

	return manifest.Data, nil
}

// WriteManifest persists an episode listing into a series directory.
// The manifest is written once per series, before any episode processing begins.
func WriteManifest(dir string, records []EpisodeRecord) error {
	if err := filesystem.API().MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	body, err := json.MarshalIndent(sourceManifest{Data: records}, "", "  ")
	if err != nil {
		return err
	}

	return filesystem.API().WriteFile(filepath.Join(dir, manifestName), body, 0644)
}
