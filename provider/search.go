package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/anigrab-cli/anigrab/internal/cache"
	"github.com/anigrab-cli/anigrab/log"
	"github.com/anigrab-cli/anigrab/network"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Search queries the provider catalog for series matching the given name.
// Results are cached on disk; the master catalog list is extended with every
// newly discovered entry.
func (c *Client) Search(ctx context.Context, query string) ([]Series, error) {
	cacheKey := cache.GenerateKey(query, "search")
	var cached []Series
	if cache.Read(cacheKey, &cached) {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/api?m=search&q=%s", c.session.Host, url.QueryEscape(query))
	body, err := network.Fetch(ctx, c.session, endpoint, network.FetchOptions{})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var response struct {
		Data []Series `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("search %q: decode response: %w", query, err)
	}

	if len(response.Data) > 0 {
		_ = cache.Write(cacheKey, response.Data)
		if err := AppendCatalog(response.Data); err != nil {
			log.Warnf("catalog list update failed: %v", err)
		}
	}

	return response.Data, nil
}

// Closest picks the series whose title is nearest to the query.
// Fuzzy-matching candidates are preferred; among them the smallest edit
// distance wins, ties broken by stable input order.
func Closest(query string, series []Series) mo.Option[Series] {
	if len(series) == 0 {
		return mo.None[Series]()
	}

	candidates := lo.Filter(series, func(s Series, _ int) bool {
		return fuzzy.MatchFold(query, s.Title)
	})
	if len(candidates) == 0 {
		candidates = series
	}

	best := lo.MinBy(candidates, func(a, b Series) bool {
		return levenshtein.Distance(strings.ToLower(query), strings.ToLower(a.Title)) <
			levenshtein.Distance(strings.ToLower(query), strings.ToLower(b.Title))
	})

	return mo.Some(best)
}
