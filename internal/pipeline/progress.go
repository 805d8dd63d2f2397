package pipeline

// Progress event statuses, in the order a successful run emits them.
const (
	StatusUploading    = "uploading"
	StatusInfo         = "info"
	StatusLoadingModel = "loading_model"
	StatusModelLoaded  = "model_loaded"
	StatusTranscribing = "transcribing"
	StatusProcessing   = "processing"
	StatusComplete     = "complete"
	StatusError        = "error"
)

// ProgressEvent is one entry in a run's progress stream. The result fields
// are populated only on the terminal "complete" event. Events are ephemeral;
// they exist only for the duration of the stream.
type ProgressEvent struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`

	// Present only on the terminal complete event.
	Text             string `json:"text,omitempty"`
	TxtFile          string `json:"txt_file,omitempty"`
	SrtFile          string `json:"srt_file,omitempty"`
	ProcessingTime   string `json:"processing_time,omitempty"`
	LanguageDetected string `json:"language_detected,omitempty"`
}

// Terminal reports whether this event ends the stream. Consumers must treat
// an error event as terminal regardless of its progress value.
func (e ProgressEvent) Terminal() bool {
	return e.Status == StatusComplete || e.Status == StatusError
}

// emitter produces events onto a run's channel, enforcing the stream
// contract: progress values never decrease, and nothing follows a terminal
// event. The invariant lives here, on the producer, not on any transport.
type emitter struct {
	ch   chan<- ProgressEvent
	last int
	done bool
}

func newEmitter(ch chan<- ProgressEvent) *emitter {
	return &emitter{ch: ch}
}

// emit sends a non-terminal event, clamping progress to the monotonic floor.
func (em *emitter) emit(status string, progress int, message string) {
	if em.done || em.ch == nil {
		return
	}
	if progress < em.last {
		progress = em.last
	}
	em.last = progress
	em.ch <- ProgressEvent{Status: status, Progress: progress, Message: message}
}

// complete sends the terminal success event at exactly 100 and seals the stream.
func (em *emitter) complete(ev ProgressEvent) {
	if em.done || em.ch == nil {
		return
	}
	ev.Status = StatusComplete
	ev.Progress = 100
	em.last = 100
	em.done = true
	em.ch <- ev
}

// fail sends the single terminal error event and seals the stream.
func (em *emitter) fail(message string) {
	if em.done || em.ch == nil {
		return
	}
	em.done = true
	em.ch <- ProgressEvent{Status: StatusError, Progress: em.last, Message: message}
}
