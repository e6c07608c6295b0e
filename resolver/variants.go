package resolver

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/anigrab-cli/anigrab/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Variant is one candidate stream rendition offered on a play page.
// Instances are never mutated; selection picks exactly one per episode.
type Variant struct {
	// Resolution in vertical lines, 0 when unknown.
	Resolution int
	// Audio track identifier, empty when unknown.
	Audio string
	// RedirectURL points at the stream-hosting page.
	RedirectURL string
	// Incompatible marks a codec the downstream muxer cannot process.
	Incompatible bool
}

func (v Variant) String() string {
	audio := v.Audio
	if audio == "" {
		audio = "?"
	}
	if v.Resolution == 0 {
		return fmt.Sprintf("?p/%s", audio)
	}
	return fmt.Sprintf("%dp/%s", v.Resolution, audio)
}

// Preferences captures the user's optional rendition filters.
type Preferences struct {
	Resolution mo.Option[int]
	Audio      mo.Option[string]
}

var (
	variantButtonRe = regexp.MustCompile(`<button[^>]+data-src="[^"]+"[^>]*>`)
	attributeRe     = regexp.MustCompile(`data-(src|resolution|audio|av1)="([^"]*)"`)
)

// ExtractVariants parses every stream variant button on an intermediary play page.
// Page order is preserved; it is the stable tie-break order for selection.
func ExtractVariants(pageHTML string) []Variant {
	var variants []Variant

	for _, tag := range variantButtonRe.FindAllString(pageHTML, -1) {
		var v Variant
		for _, attr := range attributeRe.FindAllStringSubmatch(tag, -1) {
			switch attr[1] {
			case "src":
				v.RedirectURL = attr[2]
			case "resolution":
				v.Resolution, _ = strconv.Atoi(attr[2])
			case "audio":
				v.Audio = attr[2]
			case "av1":
				v.Incompatible = attr[2] == "1"
			}
		}
		if v.RedirectURL != "" {
			variants = append(variants, v)
		}
	}

	return variants
}

// SelectVariant picks exactly one variant according to the fixed precedence:
// incompatible codecs are excluded unconditionally; the audio filter applies
// when it matches anything, then the resolution filter likewise; whatever
// survives is resolved to the highest resolution, unknown resolution lowest,
// ties broken by stable input order.
func SelectVariant(variants []Variant, prefs Preferences) (Variant, error) {
	candidates := lo.Filter(variants, func(v Variant, _ int) bool {
		return !v.Incompatible
	})
	if len(candidates) == 0 {
		return Variant{}, ErrNoVariants
	}

	if audio, ok := prefs.Audio.Get(); ok {
		filtered := lo.Filter(candidates, func(v Variant, _ int) bool {
			return v.Audio == audio
		})
		if len(filtered) > 0 {
			candidates = filtered
		} else {
			log.Warnf("no variant carries audio track %q, ignoring the filter", audio)
		}
	}

	if resolution, ok := prefs.Resolution.Get(); ok && resolution > 0 {
		filtered := lo.Filter(candidates, func(v Variant, _ int) bool {
			return v.Resolution == resolution
		})
		if len(filtered) > 0 {
			candidates = filtered
		} else {
			log.Warnf("no variant offers %dp, ignoring the filter", resolution)
		}
	}

	best := candidates[0]
	for _, v := range candidates[1:] {
		if v.Resolution > best.Resolution {
			best = v
		}
	}

	return best, nil
}
