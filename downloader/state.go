package downloader

// State identifies the stage an episode's pipeline is in. Transitions are
// strictly sequential; any failure short-circuits the remaining stages.
type State int

const (
	StatePending State = iota
	StateSkipExisting
	StateResolvingLink
	StateDownloading
	StateDecrypting
	StateManifestBuilding
	StateConcatenating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSkipExisting:
		return "skipped (exists)"
	case StateResolvingLink:
		return "resolving link"
	case StateDownloading:
		return "downloading"
	case StateDecrypting:
		return "decrypting"
	case StateManifestBuilding:
		return "building manifest"
	case StateConcatenating:
		return "concatenating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends an episode's processing.
func (s State) Terminal() bool {
	switch s {
	case StateSkipExisting, StateDone, StateFailed:
		return true
	default:
		return false
	}
}
