// Package downloader sequences stream resolution, segment acquisition and
// assembly for each episode of a batch.
//
// Episodes are processed strictly one at a time. This bounds peak resource
// usage to one episode's segment set and keeps failure attribution
// unambiguous. Per-episode failures are tallied, never raised past the batch
// loop.
package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anigrab-cli/anigrab/filesystem"
	"github.com/anigrab-cli/anigrab/hls"
	"github.com/anigrab-cli/anigrab/icon"
	"github.com/anigrab-cli/anigrab/log"
	"github.com/anigrab-cli/anigrab/muxer"
	"github.com/anigrab-cli/anigrab/provider"
	"github.com/anigrab-cli/anigrab/resolver"
	"github.com/anigrab-cli/anigrab/util"
	"github.com/anigrab-cli/anigrab/where"
)

// Options tunes a batch run.
type Options struct {
	// Preferences filter the stream variant picked per episode.
	Preferences resolver.Preferences
	// Parallelism bounds the segment worker pools.
	Parallelism int
	// SegmentTimeout bounds one segment's total attempt time; zero disables it.
	SegmentTimeout time.Duration
	// Retain keeps working directories after completion for debugging.
	Retain bool
	// SkipExisting treats an existing output file as valid and skips the episode.
	SkipExisting bool
	// LinkOnly resolves and prints playlist URLs without downloading anything.
	LinkOnly bool
}

// EpisodeResult records one episode's terminal state.
type EpisodeResult struct {
	Episode int
	State   State
	Output  string
	Err     error
}

// Report aggregates a finished batch.
type Report struct {
	Results []EpisodeResult
}

// Succeeded counts episodes that reached a successful terminal state.
func (r Report) Succeeded() int {
	n := 0
	for _, result := range r.Results {
		if result.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts episodes that terminated with an error.
func (r Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Failures returns the failed episode results, preserving batch order so the
// run can be retried selectively with a narrower selection expression.
func (r Report) Failures() []EpisodeResult {
	var failures []EpisodeResult
	for _, result := range r.Results {
		if result.Err != nil {
			failures = append(failures, result)
		}
	}
	return failures
}

// Run processes the selected episodes of a series sequentially and aggregates
// their outcomes. A failing episode never terminates the batch.
func Run(ctx context.Context, client *provider.Client, series provider.Series, records []provider.EpisodeRecord, episodes []int, opts Options) Report {
	var report Report

	for _, episode := range episodes {
		result := runEpisode(ctx, client, series, records, episode, opts)
		if result.Err != nil {
			log.Errorf("episode %d failed while %s: %v", episode, result.State, result.Err)
			fmt.Printf("%s E%d failed: %v\n", icon.Get(icon.Fail), episode, result.Err)
		}
		report.Results = append(report.Results, result)
	}

	return report
}

// runEpisode drives one episode through the pipeline state machine.
func runEpisode(ctx context.Context, client *provider.Client, series provider.Series, records []provider.EpisodeRecord, episode int, opts Options) (result EpisodeResult) {
	result = EpisodeResult{Episode: episode, State: StatePending}
	result.Output = filepath.Join(series.Dir(), fmt.Sprintf("%d.mp4", episode))

	fail := func(state State, err error) EpisodeResult {
		result.State = state
		result.Err = err
		return result
	}

	if !opts.LinkOnly && opts.SkipExisting {
		if info, err := filesystem.API().Stat(result.Output); err == nil && info.Size() > 0 {
			// Existing content is assumed valid; it is never re-validated.
			fmt.Printf("%s E%d already exists, skipping\n", icon.Get(icon.Success), episode)
			result.State = StateSkipExisting
			return result
		}
	}

	locator, err := provider.Locate(series, records, episode)
	if err != nil {
		return fail(StateResolvingLink, err)
	}

	result.State = StateResolvingLink
	narrate(episode, result.State)

	playlistURL, err := resolver.Resolve(ctx, client.Session(), client.PlayPageURL(locator), opts.Preferences)
	if err != nil {
		return fail(StateResolvingLink, err)
	}

	if opts.LinkOnly {
		fmt.Println(playlistURL)
		result.State = StateDone
		return result
	}

	workDir, err := makeWorkDir(series, episode)
	if err != nil {
		return fail(StateDownloading, err)
	}
	defer func() {
		if opts.Retain {
			fmt.Printf("%s E%d working directory retained at %s\n", icon.Get(icon.Question), episode, workDir)
			return
		}
		if err := util.Delete(workDir); err != nil {
			log.Warnf("working directory cleanup failed: %v", err)
		}
	}()
	defer func() {
		// A failed episode never leaves a partial output file behind.
		if result.Err != nil {
			_ = filesystem.API().Remove(result.Output)
		}
	}()

	result.State = StateDownloading
	narrate(episode, result.State)

	acquired, err := hls.AcquireAndDecrypt(ctx, client.Session(), playlistURL, workDir, hls.Options{
		Parallelism:    opts.Parallelism,
		SegmentTimeout: opts.SegmentTimeout,
		Retain:         opts.Retain,
		OnPhase: func(phase hls.Phase) {
			switch phase {
			case hls.PhaseDecrypt:
				result.State = StateDecrypting
			case hls.PhaseManifest:
				result.State = StateManifestBuilding
			default:
				return
			}
			narrate(episode, result.State)
		},
	})
	if err != nil {
		return fail(result.State, err)
	}

	result.State = StateConcatenating
	narrate(episode, result.State)

	if err := filesystem.API().MkdirAll(series.Dir(), os.ModePerm); err != nil {
		return fail(StateConcatenating, err)
	}
	if err := muxer.Concatenate(ctx, acquired.ManifestPath, result.Output); err != nil {
		return fail(StateConcatenating, err)
	}

	fmt.Printf("%s E%d done: %s\n", icon.Get(icon.Success), episode, result.Output)
	result.State = StateDone
	return result
}

func narrate(episode int, state State) {
	log.Infof("episode %d: %s", episode, state)
	fmt.Printf("%s E%d %s\n", icon.Get(stateIcon(state)), episode, state)
}

func stateIcon(state State) icon.Icon {
	switch state {
	case StateDownloading:
		return icon.Download
	case StateDecrypting:
		return icon.Lock
	default:
		return icon.Progress
	}
}

// makeWorkDir creates the episode's private working directory. The name embeds
// the process id and a random suffix so concurrent invocations never collide
// and crash leftovers stay identifiable for cleanup.
func makeWorkDir(series provider.Series, episode int) (string, error) {
	name := fmt.Sprintf("%s-E%d-%d-%s", series.Dirname(), episode, os.Getpid(), util.RandomHex(4))
	dir := filepath.Join(where.Temp(), name)
	return dir, filesystem.API().MkdirAll(dir, os.ModePerm)
}
