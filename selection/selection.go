// Package selection evaluates episode selection expressions against the set of available episodes.
//
// An expression is a comma-separated list of tokens, each an inclusion or an
// exclusion (prefixed with '!'). Supported token kinds:
//
//	5      exact episode number
//	2-6    inclusive range
//	4-     open-ended range (4 through the last available)
//	-3     open-started range (first available through 3)
//	*      every available episode
//	L3     the latest 3 available episodes
//	F3     the first 3 available episodes
//
// Inclusions accumulate into an include-set, exclusions into an exclude-set,
// and the result is sorted(include − exclude). Tokens that resolve to nothing
// are dropped with a warning; the evaluation fails only when the final result
// is empty without any exclusion having been requested.
package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anigrab-cli/anigrab/log"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

var (
	// ErrEmptySelection signals that the expression selected nothing at all.
	ErrEmptySelection = errors.New("selection resolves to no episodes")

	// ErrInvalidRange signals a range token whose lower bound exceeds its upper bound.
	ErrInvalidRange = errors.New("invalid range")
)

// Evaluate resolves an expression to a sorted, deduplicated subset of available.
// The available list is treated as the authoritative episode universe; numbers
// outside it never appear in the result.
func Evaluate(expression string, available []int) ([]int, error) {
	universe := slices.Clone(available)
	slices.Sort(universe)
	universe = slices.Compact(universe)

	include := make(map[int]struct{})
	exclude := make(map[int]struct{})
	var hasExclusions bool

	for _, token := range strings.Split(expression, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		target := include
		if strings.HasPrefix(token, "!") {
			token = strings.TrimPrefix(token, "!")
			target = exclude
			hasExclusions = true
		}

		resolved, err := resolveToken(token, universe)
		if err != nil {
			return nil, err
		}

		if len(resolved) == 0 {
			log.Warnf("selection token %q matches no available episode, dropping it", token)
			continue
		}

		for _, n := range resolved {
			target[n] = struct{}{}
		}
	}

	result := lo.Filter(universe, func(n int, _ int) bool {
		_, included := include[n]
		_, excluded := exclude[n]
		return included && !excluded
	})

	if len(result) == 0 && !hasExclusions {
		return nil, fmt.Errorf("%w: %q", ErrEmptySelection, expression)
	}

	return result, nil
}

// resolveToken expands a single inclusion or exclusion token against the universe.
// Unrecognized tokens resolve to nothing; only a reversed range is a hard error.
func resolveToken(token string, universe []int) ([]int, error) {
	if len(universe) == 0 {
		return nil, nil
	}

	switch {
	case token == "*":
		return universe, nil

	case strings.HasPrefix(token, "L"), strings.HasPrefix(token, "F"):
		n, err := strconv.Atoi(token[1:])
		if err != nil || n <= 0 {
			return nil, nil
		}
		n = min(n, len(universe))
		if token[0] == 'L' {
			return universe[len(universe)-n:], nil
		}
		return universe[:n], nil

	case strings.Contains(token, "-"):
		return resolveRange(token, universe)

	default:
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, nil
		}
		if _, found := slices.BinarySearch(universe, n); found {
			return []int{n}, nil
		}
		return nil, nil
	}
}

func resolveRange(token string, universe []int) ([]int, error) {
	left, right, _ := strings.Cut(token, "-")
	if left == "" && right == "" {
		return nil, nil
	}

	low := universe[0]
	high := universe[len(universe)-1]

	if left != "" {
		n, err := strconv.Atoi(left)
		if err != nil {
			return nil, nil
		}
		low = n
	}
	if right != "" {
		n, err := strconv.Atoi(right)
		if err != nil {
			return nil, nil
		}
		high = n
	}

	if left != "" && right != "" && low > high {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, token)
	}

	return lo.Filter(universe, func(n int, _ int) bool {
		return n >= low && n <= high
	}), nil
}
