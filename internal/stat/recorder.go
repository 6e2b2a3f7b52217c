package stat

// ErrorKind classifies non-fatal structural misuse of a tree.
type ErrorKind string

const (
	ErrKindValueChild   ErrorKind = "value_child"
	ErrKindOperandCount ErrorKind = "operand_count"
	ErrKindMissingKey   ErrorKind = "missing_key"
)

// Recorder receives evaluation events. Implementations must be safe for
// concurrent use when several trees are evaluated from different goroutines.
type Recorder interface {
	Recomputed(key string)
	StructuralError(kind ErrorKind, key string)
}

type nopRecorder struct{}

func (nopRecorder) Recomputed(string)                 {}
func (nopRecorder) StructuralError(ErrorKind, string) {}

var recorder Recorder = nopRecorder{}

// SetRecorder installs r as the process-wide event sink. Passing nil restores
// the no-op recorder. Call it during startup, before trees are evaluated.
func SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	recorder = r
}

// ReportMissingKey records a failed named lookup made on behalf of a caller.
func ReportMissingKey(key string) {
	recorder.StructuralError(ErrKindMissingKey, key)
}
