// Package hls acquires an encrypted HLS stream and prepares it for lossless assembly.
//
// The engine downloads the media playlist, fetches every segment through a
// bounded worker pool, decrypts them with the stream-supplied AES-128 key, and
// emits a concatenation manifest preserving exact playlist order. Download and
// decryption never overlap in time for one episode: the download pool drains
// fully before decryption begins.
package hls

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/anigrab-cli/anigrab/filesystem"
	"github.com/anigrab-cli/anigrab/key"
	"github.com/anigrab-cli/anigrab/log"
	"github.com/anigrab-cli/anigrab/network"
	"github.com/anigrab-cli/anigrab/util"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const (
	playlistFilename = "playlist.m3u8"
	keyFilename      = "stream.key"
	encryptedSuffix  = ".encrypted"
)

// Options tunes one episode's acquisition run.
// Zero values fall back to the configured defaults.
type Options struct {
	// Parallelism bounds the worker pool for both the download and decrypt phases.
	Parallelism int
	// SegmentTimeout bounds a single segment's total attempt time; zero disables the bound.
	// Exceeding it fails that job only, never its siblings.
	SegmentTimeout time.Duration
	// Retain keeps the key file and encrypted originals for debugging.
	Retain bool
	// OnPhase, when set, is invoked as the engine enters each phase.
	OnPhase func(phase Phase)
}

// Phase identifies the engine's sequential stages for progress reporting.
type Phase int

const (
	PhaseDownload Phase = iota
	PhaseDecrypt
	PhaseManifest
)

func (o Options) enterPhase(phase Phase) {
	if o.OnPhase != nil {
		o.OnPhase(phase)
	}
}

func (o Options) parallelism() int {
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	if configured := viper.GetInt(key.DownloadParallelism); configured > 0 {
		return configured
	}
	return 4
}

// Result reports a successful acquisition.
type Result struct {
	// SegmentPaths are the decrypted segment files in playlist order.
	SegmentPaths []string
	// ManifestPath is the concatenation manifest consumed by the assembler.
	ManifestPath string
}

// AcquireAndDecrypt downloads, decrypts and orders every segment of the media
// playlist into workDir. Any shortfall at any stage fails the whole episode:
// partial segment sets must never reach the assembler.
func AcquireAndDecrypt(ctx context.Context, session network.Session, playlistURL, workDir string, opts Options) (*Result, error) {
	playlistPath := filepath.Join(workDir, playlistFilename)
	if err := network.DownloadToFile(ctx, session, playlistURL, playlistPath, network.FetchOptions{}); err != nil {
		return nil, err
	}

	text, err := filesystem.API().ReadFile(playlistPath)
	if err != nil {
		return nil, err
	}

	playlist := ParsePlaylist(string(text))
	if len(playlist.SegmentURLs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPlaylist, playlistURL)
	}
	log.Infof("playlist lists %s", util.Quantify(len(playlist.SegmentURLs), "segment", "segments"))

	opts.enterPhase(PhaseDownload)
	names, err := downloadSegments(ctx, session, playlist, workDir, opts)
	if err != nil {
		return nil, err
	}

	opts.enterPhase(PhaseDecrypt)
	if playlist.Encrypted() {
		if err := decryptSegments(ctx, session, playlist, workDir, names, opts); err != nil {
			return nil, err
		}
	} else {
		if err := adoptPlainSegments(workDir, names); err != nil {
			return nil, err
		}
	}

	opts.enterPhase(PhaseManifest)
	manifestPath, err := buildManifest(workDir, names)
	if err != nil {
		return nil, err
	}

	return &Result{
		SegmentPaths: lo.Map(names, func(name string, _ int) string {
			return filepath.Join(workDir, name)
		}),
		ManifestPath: manifestPath,
	}, nil
}

// downloadSegments fetches every segment concurrently into workDir and returns
// the plaintext basenames in playlist order.
func downloadSegments(ctx context.Context, session network.Session, playlist Playlist, workDir string, opts Options) ([]string, error) {
	names := lo.Map(playlist.SegmentURLs, func(segmentURL string, i int) string {
		return segmentName(i, segmentURL)
	})

	jobs := make([]func() error, len(playlist.SegmentURLs))
	for i, segmentURL := range playlist.SegmentURLs {
		target := filepath.Join(workDir, names[i]+encryptedSuffix)
		segmentURL := segmentURL

		jobs[i] = func() error {
			jobCtx := ctx
			if opts.SegmentTimeout > 0 {
				var cancel context.CancelFunc
				jobCtx, cancel = context.WithTimeout(ctx, opts.SegmentTimeout)
				defer cancel()
			}

			if err := network.DownloadToFile(jobCtx, session, segmentURL, target, network.FetchOptions{}); err != nil {
				log.Errorf("segment download failed: %v", err)
				return err
			}
			return nil
		}
	}

	failed := runPool(opts.parallelism(), jobs)

	written := countExisting(workDir, names, encryptedSuffix)
	if failed > 0 || written != len(names) {
		return nil, fmt.Errorf("%w: %d of %d downloaded", ErrSegmentCountMismatch, written, len(names))
	}

	return names, nil
}

// decryptSegments fetches the stream key and decrypts every downloaded segment
// through the same bounded pool discipline as downloading.
func decryptSegments(ctx context.Context, session network.Session, playlist Playlist, workDir string, names []string, opts Options) error {
	streamKey, err := network.Fetch(ctx, session, playlist.KeyURL, network.FetchOptions{})
	if err != nil {
		return err
	}
	if len(streamKey) != 16 {
		return fmt.Errorf("%w: got %d bytes, want 16", ErrBadKey, len(streamKey))
	}
	log.Debugf("stream key %s", hex.EncodeToString(streamKey))

	keyPath := filepath.Join(workDir, keyFilename)
	if err := filesystem.API().WriteFile(keyPath, streamKey, 0600); err != nil {
		return err
	}

	jobs := lo.Map(names, func(name string, _ int) func() error {
		src := filepath.Join(workDir, name+encryptedSuffix)
		dst := filepath.Join(workDir, name)
		return func() error {
			if err := decryptSegment(src, dst, streamKey); err != nil {
				log.Error(err)
				return err
			}
			return nil
		}
	})

	failed := runPool(opts.parallelism(), jobs)

	decrypted := countExisting(workDir, names, "")
	if failed > 0 || decrypted != len(names) {
		return fmt.Errorf("%w: %d of %d decrypted", ErrDecryptCountMismatch, decrypted, len(names))
	}

	if !opts.Retain {
		_ = filesystem.API().Remove(keyPath)
		for _, name := range names {
			_ = filesystem.API().Remove(filepath.Join(workDir, name+encryptedSuffix))
		}
	}

	return nil
}

// adoptPlainSegments promotes downloaded files of a keyless playlist to final
// segments unmodified. Encrypted-looking content without a key reference
// indicates an inconsistent playlist and is worth a warning.
func adoptPlainSegments(workDir string, names []string) error {
	for i, name := range names {
		src := filepath.Join(workDir, name+encryptedSuffix)

		if i == 0 && looksEncrypted(src) {
			log.Warn("playlist carries no key but segment data does not look like plain transport stream")
		}

		if err := filesystem.API().Rename(src, filepath.Join(workDir, name)); err != nil {
			return err
		}
	}
	return nil
}

// looksEncrypted reports whether a segment lacks the MPEG-TS sync byte.
func looksEncrypted(path string) bool {
	f, err := filesystem.API().Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	first := make([]byte, 1)
	if _, err := f.Read(first); err != nil {
		return false
	}
	return first[0] != 0x47
}

func countExisting(workDir string, names []string, suffix string) int {
	return lo.CountBy(names, func(name string) bool {
		info, err := filesystem.API().Stat(filepath.Join(workDir, name+suffix))
		return err == nil && info.Size() > 0
	})
}
