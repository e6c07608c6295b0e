package resolver

import "errors"

// Resolution failures are distinguishable so the orchestrator's log communicates cause.
// All of them are per-episode: the batch skips the episode and continues.
var (
	// ErrPageUnreachable signals that an intermediary or stream-hosting page could not be fetched.
	ErrPageUnreachable = errors.New("page unreachable")

	// ErrNoVariants signals that no processable stream variant survived extraction and filtering.
	ErrNoVariants = errors.New("no stream variants")

	// ErrScriptExtraction signals that the stream-hosting page carried no recognizable packed script.
	// This usually means the provider changed its page template.
	ErrScriptExtraction = errors.New("packed script not found")

	// ErrScriptExecution signals that the embedded script failed or timed out during evaluation.
	ErrScriptExecution = errors.New("script execution failed")

	// ErrNoPlaylistURL signals that the evaluated script produced no valid playlist address.
	ErrNoPlaylistURL = errors.New("no playlist url in script output")
)
