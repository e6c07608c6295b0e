// Package provider implements the catalog client for the remote content provider.
//
// The provider exposes a JSON API for series search and episode listings, and
// per-episode play pages from which streams are resolved. Episode listings are
// persisted into a per-series source manifest so repeated runs avoid
// re-fetching the catalog.
package provider

import (
	"fmt"
	"path/filepath"

	"github.com/anigrab-cli/anigrab/network"
	"github.com/anigrab-cli/anigrab/util"
	"github.com/anigrab-cli/anigrab/where"
)

// Series is one catalog entry discovered through a provider search.
type Series struct {
	Title    string `json:"title"`
	Session  string `json:"session"`
	Type     string `json:"type"`
	Episodes int    `json:"episodes"`
	Status   string `json:"status"`
	Year     int    `json:"year"`
}

// Dirname returns the filesystem-safe directory name for the series.
func (s Series) Dirname() string {
	return util.SanitizeFilename(s.Title)
}

// Dir returns the output directory holding the series' episode files and source manifest.
func (s Series) Dir() string {
	return filepath.Join(where.Downloads(), s.Dirname())
}

func (s Series) String() string {
	return s.Title
}

// EpisodeRecord pairs an episode number with its provider-assigned opaque session token.
// Records are immutable once fetched from the catalog.
type EpisodeRecord struct {
	Episode   int    `json:"episode"`
	Session   string `json:"session"`
	CreatedAt string `json:"created_at"`
}

// Locator addresses one episode of one series for stream resolution.
type Locator struct {
	SeriesSession  string
	EpisodeSession string
	Episode        int
}

// Client talks to the provider catalog API on behalf of one session.
type Client struct {
	session network.Session
}

// New returns a catalog client bound to the given session.
func New(session network.Session) *Client {
	return &Client{session: session}
}

// PlayPageURL returns the intermediary play page address for an episode locator.
func (c *Client) PlayPageURL(locator Locator) string {
	return fmt.Sprintf("%s/play/%s/%s", c.session.Host, locator.SeriesSession, locator.EpisodeSession)
}

// Session exposes the client's immutable request context for downstream components.
func (c *Client) Session() network.Session {
	return c.session
}
