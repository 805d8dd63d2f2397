// Package pipeline coordinates one transcription run end to end: input
// validation, model acquisition, backend decode with live progress, artifact
// writing, persistence hooks, and transient-input cleanup.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribe-engine/internal/artifact"
	"github.com/snarg/scribe-engine/internal/metrics"
	"github.com/snarg/scribe-engine/internal/transcribe"
)

// Record is what a finished run persists, when a record store is configured.
type Record struct {
	Token         string
	Title         string
	Model         string
	Backend       string
	Language      string
	Text          string
	AudioDuration float64 // seconds
	ProcessingSec float64
	SegmentCount  int
	TxtFile       string
	SrtFile       string
}

// Options configures an Orchestrator. Backend, Cache, Writer and Log are
// required; the hook functions and tuning knobs are optional.
type Options struct {
	Backend transcribe.Backend
	Cache   *transcribe.ModelCache
	Writer  *artifact.Writer
	Log     zerolog.Logger

	// Progress policy: one transcribing event per EverySegments segments,
	// advancing StepPercent each time, capped below completion. Zero values
	// take the defaults (10 segments, 5 percent).
	EverySegments int
	StepPercent   int

	// Optional post-run hooks. Failures are logged, not fatal: by the time
	// they run the transcription itself has succeeded.
	SaveRecord      func(ctx context.Context, rec Record) error
	MirrorArtifacts func(ctx context.Context, paths artifact.Paths) error
	PublishComplete func(event ProgressEvent)
}

// Orchestrator drives transcription runs. One orchestrator serves all runs;
// each run is strictly sequential internally, and concurrent runs contend
// only inside the ModelCache.
type Orchestrator struct {
	opts Options
	log  zerolog.Logger
}

// RunResult is the in-process view of a completed run.
type RunResult struct {
	Token      string
	Result     *transcribe.Result
	Paths      artifact.Paths
	Processing time.Duration
}

// NewOrchestrator creates an orchestrator from options.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.EverySegments <= 0 {
		opts.EverySegments = 10
	}
	if opts.StepPercent <= 0 {
		opts.StepPercent = 5
	}
	return &Orchestrator{
		opts: opts,
		log:  opts.Log.With().Str("component", "orchestrator").Logger(),
	}
}

// Run executes one transcription. Progress events are produced onto events
// in order, with non-decreasing percentages, ending in exactly one terminal
// event; the channel is closed when Run returns. The caller must consume
// the channel concurrently. req.InputPath is deleted on every exit path.
func (o *Orchestrator) Run(ctx context.Context, token string, req transcribe.Request, events chan<- ProgressEvent) (result *RunResult, err error) {
	start := time.Now()
	em := newEmitter(events)
	defer func() {
		if events != nil {
			close(events)
		}
	}()
	defer cleanupInput(req.InputPath)

	log := o.log.With().Str("token", token).Str("file", filepath.Base(req.InputPath)).Logger()

	fail := func(runErr error) (*RunResult, error) {
		log.Error().Err(runErr).Str("model", req.Model).Str("backend", o.opts.Backend.Name()).Msg("transcription run failed")
		em.fail(runErr.Error())
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, runErr
	}

	// Validation happens before any model or backend resource is touched.
	if !transcribe.AllowedExtension(req.InputPath) {
		return fail(&transcribe.UnsupportedFormatError{Filename: filepath.Base(req.InputPath)})
	}
	if !transcribe.ValidTier(req.Model) {
		return fail(fmt.Errorf("unknown model tier %q", req.Model))
	}

	em.emit(StatusUploading, 10, "file upload complete")

	if fi, statErr := os.Stat(req.InputPath); statErr == nil {
		em.emit(StatusInfo, 15, fmt.Sprintf("file size: %.1fMB", float64(fi.Size())/1024/1024))
	} else {
		return fail(fmt.Errorf("input file: %w", statErr))
	}

	em.emit(StatusLoadingModel, 20, fmt.Sprintf("loading model %s...", req.Model))
	handle, loadErr := o.opts.Cache.Get(ctx, req.Model)
	if loadErr != nil {
		return fail(loadErr)
	}
	em.emit(StatusModelLoaded, 30, fmt.Sprintf("model loaded (%s/%s)", handle.Device.Name, handle.Device.Compute))

	em.emit(StatusTranscribing, 40, "transcribing...")

	var segments []transcribe.Segment
	count := 0
	onSegment := func(seg transcribe.Segment) error {
		segments = append(segments, seg)
		count++
		if count%o.opts.EverySegments == 0 {
			p := 40 + (count/o.opts.EverySegments)*o.opts.StepPercent
			if p > 90 {
				p = 90
			}
			em.emit(StatusTranscribing, p, fmt.Sprintf("processing... (%d segments)", count))
		}
		return nil
	}

	summary, decodeErr := o.opts.Backend.Transcribe(ctx, req.InputPath, handle, req.Language, onSegment)
	if decodeErr != nil {
		return fail(decodeErr)
	}

	em.emit(StatusProcessing, 95, "writing output files...")

	res := assembleResult(summary, segments, req.Language)
	paths, writeErr := o.opts.Writer.Write(res, req.BaseName)
	if writeErr != nil {
		return fail(writeErr)
	}

	if o.opts.MirrorArtifacts != nil {
		if mirrorErr := o.opts.MirrorArtifacts(ctx, paths); mirrorErr != nil {
			log.Warn().Err(mirrorErr).Msg("artifact mirror failed")
		}
	}

	// Inputs are transient; release before reporting success. The deferred
	// cleanup makes a second removal a no-op.
	if cleanErr := cleanupInput(req.InputPath); cleanErr != nil {
		log.Warn().Err(cleanErr).Msg("input cleanup failed")
	}

	processing := time.Since(start)

	if o.opts.SaveRecord != nil {
		rec := Record{
			Token:         token,
			Title:         req.Title,
			Model:         req.Model,
			Backend:       o.opts.Backend.Name(),
			Language:      res.Language,
			Text:          res.Text,
			AudioDuration: res.Duration,
			ProcessingSec: processing.Seconds(),
			SegmentCount:  len(res.Segments),
			TxtFile:       filepath.Base(paths.Txt),
			SrtFile:       filepath.Base(paths.Srt),
		}
		if saveErr := o.opts.SaveRecord(ctx, rec); saveErr != nil {
			log.Warn().Err(saveErr).Msg("record persistence failed")
		}
	}

	complete := ProgressEvent{
		Message:          "transcription complete",
		Text:             res.Text,
		TxtFile:          filepath.Base(paths.Txt),
		SrtFile:          filepath.Base(paths.Srt),
		ProcessingTime:   fmt.Sprintf("%.1fs", processing.Seconds()),
		LanguageDetected: res.Language,
	}
	em.complete(complete)
	complete.Status = StatusComplete
	complete.Progress = 100
	if o.opts.PublishComplete != nil {
		o.opts.PublishComplete(complete)
	}

	metrics.RunsTotal.WithLabelValues("complete").Inc()
	metrics.RunDuration.Observe(processing.Seconds())
	metrics.SegmentsTotal.Add(float64(len(res.Segments)))

	log.Info().
		Int("segments", len(res.Segments)).
		Str("language", res.Language).
		Dur("processing", processing).
		Msg("transcription complete")

	return &RunResult{Token: token, Result: res, Paths: paths, Processing: processing}, nil
}

// assembleResult builds the immutable normalized result from the backend's
// segment stream and summary.
func assembleResult(summary *transcribe.Summary, segments []transcribe.Segment, requested string) *transcribe.Result {
	text := summary.Text
	if text == "" {
		text = transcribe.FullText(segments)
	}

	language := summary.Language
	if language == "" {
		if requested != "" && requested != "auto" {
			language = requested
		} else {
			language = "unknown"
		}
	}

	duration := summary.Duration
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	return &transcribe.Result{
		Text:     text,
		Segments: segments,
		Language: language,
		Duration: duration,
	}
}

// cleanupInput removes the transient input file. Removing a file that is
// already gone is a no-op, so cleanup can run on every exit path.
func cleanupInput(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
