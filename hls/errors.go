package hls

import "errors"

// Engine failures hard-stop the episode's pipeline immediately but are
// non-fatal to the batch.
var (
	// ErrEmptyPlaylist signals a media playlist carrying no segment URLs.
	ErrEmptyPlaylist = errors.New("playlist contains no segments")

	// ErrSegmentCountMismatch signals that not every parsed segment was downloaded.
	// Partial segment sets must never reach the assembler.
	ErrSegmentCountMismatch = errors.New("downloaded segment count mismatch")

	// ErrDecryptCountMismatch signals that not every downloaded segment was decrypted.
	ErrDecryptCountMismatch = errors.New("decrypted segment count mismatch")

	// ErrMissingSegmentFile signals a manifest entry whose file is absent on disk.
	// Skipping a segment silently would produce corrupted, out-of-sync playback.
	ErrMissingSegmentFile = errors.New("segment file missing")

	// ErrBadKey signals a decryption key of unexpected size.
	ErrBadKey = errors.New("malformed decryption key")
)
