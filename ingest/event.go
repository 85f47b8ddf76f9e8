package ingest

import "time"

// Stage identifies where in the pipeline a progress event was emitted.
type Stage string

const (
	StageStarted Stage = "started"
	StageReset   Stage = "reset"
	StageFetch   Stage = "fetch"
	StageChunk   Stage = "chunk"
	StageIndex   Stage = "index"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// Event is one progress update from an ingestion run. The run ends
// with exactly one terminal event: StageDone, or StageFailed with Err
// set.
type Event struct {
	Stage   Stage     `json:"stage"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Err     error     `json:"-"`
}

// Terminal reports whether the event ends the run.
func (e Event) Terminal() bool {
	return e.Stage == StageDone || e.Stage == StageFailed
}
