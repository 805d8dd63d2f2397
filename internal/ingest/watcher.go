// Package ingest watches a hot folder for dropped media files and feeds
// them through the transcription pipeline with default options. It is an
// alternative entry point to the HTTP upload API.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/scribe-engine/internal/metrics"
	"github.com/snarg/scribe-engine/internal/pipeline"
	"github.com/snarg/scribe-engine/internal/transcribe"
)

const debounceDelay = 2 * time.Second

// Watcher monitors a directory and transcribes every media file that
// appears in it. Files are processed one at a time; progress goes to the
// log instead of a stream.
type Watcher struct {
	orch     *pipeline.Orchestrator
	watchDir string
	model    string
	language string
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	jobs    chan string
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
}

// NewWatcher creates a hot-folder watcher. model and language are the
// defaults applied to every picked-up file.
func NewWatcher(orch *pipeline.Orchestrator, watchDir, model, language string, log zerolog.Logger) *Watcher {
	return &Watcher{
		orch:           orch,
		watchDir:       watchDir,
		model:          model,
		language:       language,
		log:            log.With().Str("component", "watcher").Logger(),
		jobs:           make(chan string, 64),
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start begins watching. Files already present in the folder are picked up
// first, then new arrivals as they settle.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.watchDir); err != nil {
		fsw.Close()
		return err
	}
	w.watcher = fsw

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.workLoop(ctx)

	// Backfill whatever is already sitting in the folder.
	entries, err := os.ReadDir(w.watchDir)
	if err != nil {
		w.log.Warn().Err(err).Msg("backfill scan failed")
	} else {
		for _, e := range entries {
			if !e.IsDir() {
				w.enqueue(filepath.Join(w.watchDir, e.Name()))
			}
		}
	}

	w.log.Info().Str("dir", w.watchDir).Msg("hot folder watching")
	return nil
}

// Stop shuts the watcher down and waits for the in-flight run to finish.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.debounce(ev.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

// debounce waits for writes on a file to settle before enqueueing it, so a
// large upload copied into the folder isn't transcribed half-written.
func (w *Watcher) debounce(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(debounceDelay)
		return
	}
	w.debounceTimers[path] = time.AfterFunc(debounceDelay, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()
		w.enqueue(path)
	})
}

func (w *Watcher) enqueue(path string) {
	if !transcribe.AllowedExtension(path) {
		metrics.WatcherFilesTotal.WithLabelValues("skipped").Inc()
		return
	}
	select {
	case w.jobs <- path:
	default:
		w.log.Warn().Str("file", path).Msg("watch queue full, dropping file")
		metrics.WatcherFilesTotal.WithLabelValues("dropped").Inc()
	}
}

func (w *Watcher) workLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.jobs:
			w.process(ctx, path)
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	token := uuid.NewString()
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	req := transcribe.Request{
		InputPath: path,
		Model:     w.model,
		Language:  w.language,
		BaseName:  stem + "_" + token[:8],
	}

	log := w.log.With().Str("file", filepath.Base(path)).Logger()
	log.Info().Msg("hot folder file picked up")

	events := make(chan pipeline.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			log.Debug().Str("status", ev.Status).Int("progress", ev.Progress).Msg(ev.Message)
		}
	}()

	_, err := w.orch.Run(ctx, token, req, events)
	<-done
	if err != nil {
		metrics.WatcherFilesTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("hot folder transcription failed")
		return
	}
	metrics.WatcherFilesTotal.WithLabelValues("complete").Inc()
}
