package joiner

// State is a step of the run state machine.
type State string

const (
	StateIdle         State = "idle"
	StateLoading      State = "loading"
	StatePrefiltering State = "prefiltering"
	StateScoring      State = "scoring"
	StateLimiting     State = "limiting"
	StateBuffering    State = "buffering"
	StateMerging      State = "merging"
	StateUploading    State = "uploading"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// chunkState reports whether s repeats once per chunk.
func (s State) chunkState() bool {
	switch s {
	case StatePrefiltering, StateScoring, StateLimiting, StateBuffering:
		return true
	default:
		return false
	}
}
