package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anigrab-cli/anigrab/log"
	"github.com/anigrab-cli/anigrab/network"
)

// releasePage mirrors one page of the provider's episode listing API.
type releasePage struct {
	LastPage int             `json:"last_page"`
	Data     []EpisodeRecord `json:"data"`
}

// Episodes retrieves the complete ordered episode listing for a series.
// The per-series source manifest on disk is consulted first; a fresh listing
// is fetched page by page otherwise and persisted for subsequent runs.
func (c *Client) Episodes(ctx context.Context, series Series) ([]EpisodeRecord, error) {
	if records, err := ReadManifest(series.Dir()); err == nil && len(records) > 0 {
		log.Debugf("source manifest hit for %s (%d episodes)", series.Title, len(records))
		return records, nil
	}

	var records []EpisodeRecord
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/api?m=release&id=%s&sort=episode_asc&page=%d",
			c.session.Host, series.Session, page)

		body, err := network.Fetch(ctx, c.session, endpoint, network.FetchOptions{})
		if err != nil {
			return nil, fmt.Errorf("episode listing for %s: %w", series.Title, err)
		}

		var parsed releasePage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("episode listing for %s: decode page %d: %w", series.Title, page, err)
		}

		records = append(records, parsed.Data...)
		if page >= parsed.LastPage {
			break
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no episodes listed for %s", series.Title)
	}

	if err := WriteManifest(series.Dir(), records); err != nil {
		log.Warnf("source manifest write failed for %s: %v", series.Title, err)
	}

	return records, nil
}

// Locate maps an episode number to its locator using the given listing.
func Locate(series Series, records []EpisodeRecord, episode int) (Locator, error) {
	for _, record := range records {
		if record.Episode == episode {
			return Locator{
				SeriesSession:  series.Session,
				EpisodeSession: record.Session,
				Episode:        episode,
			}, nil
		}
	}
	return Locator{}, fmt.Errorf("episode %d not present in the listing for %s", episode, series.Title)
}
