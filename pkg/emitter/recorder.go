package emitter

// Suppression reasons reported to the metrics recorder.
const (
	SuppressDisabled = "disabled"
	SuppressGlue     = "glue"
	SuppressPolicy   = "policy"
	SuppressDedup    = "dedup"
)

// Recorder receives emission outcome counts. Implementations must be cheap
// and non-blocking; they sit on the request hot path.
type Recorder interface {
	EventEmitted()
	EventSuppressed(reason string)
	EventTruncated()
	WriteFailure()
}

type nopRecorder struct{}

func (nopRecorder) EventEmitted()          {}
func (nopRecorder) EventSuppressed(string) {}
func (nopRecorder) EventTruncated()        {}
func (nopRecorder) WriteFailure()          {}
