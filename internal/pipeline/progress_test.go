package pipeline

import "testing"

func drain(ch chan ProgressEvent) []ProgressEvent {
	close(ch)
	var out []ProgressEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestEmitter(t *testing.T) {
	t.Run("clamps_to_monotonic_floor", func(t *testing.T) {
		ch := make(chan ProgressEvent, 8)
		em := newEmitter(ch)
		em.emit(StatusUploading, 10, "a")
		em.emit(StatusInfo, 15, "b")
		em.emit(StatusTranscribing, 5, "regression")

		events := drain(ch)
		if events[2].Progress != 15 {
			t.Errorf("regressing progress = %d, want clamped to 15", events[2].Progress)
		}
	})

	t.Run("nothing_after_terminal", func(t *testing.T) {
		ch := make(chan ProgressEvent, 8)
		em := newEmitter(ch)
		em.emit(StatusUploading, 10, "a")
		em.fail("boom")
		em.emit(StatusInfo, 15, "late")
		em.complete(ProgressEvent{})

		events := drain(ch)
		if len(events) != 2 {
			t.Fatalf("got %d events after terminal, want 2", len(events))
		}
		if !events[1].Terminal() {
			t.Errorf("last event not terminal: %+v", events[1])
		}
	})

	t.Run("complete_forces_100", func(t *testing.T) {
		ch := make(chan ProgressEvent, 8)
		em := newEmitter(ch)
		em.emit(StatusProcessing, 95, "a")
		em.complete(ProgressEvent{Message: "done", Text: "hi"})

		events := drain(ch)
		last := events[len(events)-1]
		if last.Status != StatusComplete || last.Progress != 100 {
			t.Errorf("terminal = %+v, want complete at 100", last)
		}
		if last.Text != "hi" {
			t.Errorf("terminal text = %q", last.Text)
		}
	})

	t.Run("fail_keeps_last_progress", func(t *testing.T) {
		ch := make(chan ProgressEvent, 8)
		em := newEmitter(ch)
		em.emit(StatusTranscribing, 40, "a")
		em.fail("backend exploded")

		events := drain(ch)
		last := events[len(events)-1]
		if last.Status != StatusError || last.Progress != 40 {
			t.Errorf("terminal = %+v, want error at 40", last)
		}
		if last.Message != "backend exploded" {
			t.Errorf("message = %q", last.Message)
		}
	})
}
