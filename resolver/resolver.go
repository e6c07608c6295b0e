// Package resolver discovers the true HLS media playlist behind an episode's play page.
//
// Resolution walks an obfuscated chain: the intermediary play page lists
// stream variants, the chosen variant redirects to a stream-hosting page, and
// that page hides the playlist address inside an eval-style packed script
// which must be evaluated headlessly. The variant markup and the packer are
// provider-specific and change with the provider's template; the extraction
// seams in this package are the expected maintenance point when that happens.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/anigrab-cli/anigrab/key"
	"github.com/anigrab-cli/anigrab/log"
	"github.com/anigrab-cli/anigrab/network"
	"github.com/spf13/viper"
)

// Resolve maps an episode play page to its media playlist URL.
// Play page fetches are not retried: a failing episode session token does not
// self-heal, so failing fast keeps the batch moving.
func Resolve(ctx context.Context, session network.Session, playPageURL string, prefs Preferences) (string, error) {
	page, err := network.Fetch(ctx, session, playPageURL, network.FetchOptions{NoRetry: true})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPageUnreachable, playPageURL)
	}

	variants := ExtractVariants(string(page))
	log.Debugf("extracted %d stream variants from %s", len(variants), playPageURL)

	chosen, err := SelectVariant(variants, prefs)
	if err != nil {
		return "", err
	}
	log.Infof("selected stream variant %s", chosen)

	hostPage, err := network.Fetch(ctx, session.WithReferer(session.Host), chosen.RedirectURL, network.FetchOptions{NoRetry: true})
	if err != nil || len(hostPage) == 0 {
		return "", fmt.Errorf("%w: %s", ErrPageUnreachable, chosen.RedirectURL)
	}

	script, err := ExtractPackedScript(string(hostPage))
	if err != nil {
		return "", err
	}

	timeout := time.Duration(viper.GetInt(key.ResolverScriptTimeout)) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	output, err := evaluateScript(transformScript(script), timeout)
	if err != nil {
		return "", err
	}

	return playlistURLFrom(output)
}
