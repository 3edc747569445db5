// Package session drives one reel from idea to rendered video.
//
// A Session caches the current idea, background, style and artifact and decides,
// for each user intent, which of them must be recomputed. Every intent blocks
// until done; a failed intent never discards state that was already confirmed.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	background "reel-studio/02_background"
	style "reel-studio/03_style"
	compose "reel-studio/04_compose"
	"reel-studio/logging"
	"reel-studio/progress"
	"reel-studio/types"
)

// Overall progress for Render: the download fills 0.10-0.40, composing the rest.
const (
	progressIdea     = 0.10
	progressFetched  = 0.40
	progressComposed = 1.0
)

var ErrNoPublisher = errors.New("publishing is not configured")

type State int

const (
	Idle State = iota
	HasIdea
	HasBackground
	HasRender
)

func (s State) String() string {
	switch s {
	case HasIdea:
		return "has_idea"
	case HasBackground:
		return "has_background"
	case HasRender:
		return "has_render"
	default:
		return "idle"
	}
}

type IdeaSource interface {
	Generate(ctx context.Context, persona, tone string) (types.Idea, error)
}

type BackgroundFetcher interface {
	Fetch(ctx context.Context, req background.Request, sink progress.Sink) (types.BackgroundAsset, error)
}

type Composer interface {
	Compose(ctx context.Context, req compose.Request, sink progress.Sink) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, videoPath string, idea types.Idea, sink progress.Sink) (types.PublishResult, error)
}

// Deps are the stages a session delegates to. Publisher may be nil.
type Deps struct {
	Ideas       IdeaSource
	Backgrounds BackgroundFetcher
	Composer    Composer
	Publisher   Publisher
	Styles      *style.Catalog
}

type Options struct {
	Root    string // parent of all session directories
	Persona string
	Tone    string
	Keep    bool // keep the directory on Close
	// Duration fixes the render length in seconds; 0 draws one per render
	Duration float64
}

type Session struct {
	mu sync.Mutex

	id   string
	dir  string
	lock dirLock
	opts Options
	deps Deps
	now  func() time.Time
	log  zerolog.Logger

	idea      *types.Idea
	bg        *types.BackgroundAsset
	styleName string
	artifact  string

	lastAction string
	lastErr    string
}

// Open creates a fresh locked session directory under opts.Root
func Open(opts Options, deps Deps) (*Session, error) {
	if deps.Ideas == nil || deps.Backgrounds == nil || deps.Composer == nil {
		return nil, errors.New("session needs an idea source, a background fetcher and a composer")
	}
	if deps.Styles == nil {
		deps.Styles = style.Default()
	}
	id, dir, err := createDir(opts.Root)
	if err != nil {
		return nil, err
	}
	lock, err := acquireLock(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	s := &Session{
		id:   id,
		dir:  dir,
		lock: lock,
		opts: opts,
		deps: deps,
		now:  time.Now,
		log:  logging.For("session").With().Str("session", id).Logger(),
	}
	s.save("open", nil)
	s.log.Info().Str("dir", dir).Msg("session opened")
	return s, nil
}

func (s *Session) ID() string  { return s.id }
func (s *Session) Dir() string { return s.dir }

// State is derived from what is cached
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() State {
	switch {
	case s.artifact != "":
		return HasRender
	case s.bg != nil:
		return HasBackground
	case s.idea != nil:
		return HasIdea
	}
	return Idle
}

// Generate asks the idea source for a new idea. On success everything cached
// for the previous idea is dropped; on failure nothing changes.
func (s *Session) Generate(ctx context.Context) (types.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea, err := s.deps.Ideas.Generate(ctx, s.opts.Persona, s.opts.Tone)
	if err != nil {
		s.save("generate", err)
		return types.Idea{}, err
	}
	s.setIdea(idea)
	s.save("generate", nil)
	return idea, nil
}

// UseIdea installs a hand-written idea with the same invalidation as Generate
func (s *Session) UseIdea(idea types.Idea) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idea.Quote == "" || idea.VisualSearchTerm == "" {
		err := errors.New("idea needs a quote and a visual search term")
		s.save("use_idea", err)
		return err
	}
	s.setIdea(idea)
	s.save("use_idea", nil)
	return nil
}

func (s *Session) setIdea(idea types.Idea) {
	s.idea = &idea
	s.bg = nil
	s.styleName = ""
	s.dropArtifact()
	_ = os.Remove(filepath.Join(s.dir, BackgroundFile))
	if err := writeJSON(filepath.Join(s.dir, IdeaFile), idea); err != nil {
		s.log.Warn().Err(err).Msg("could not persist idea")
	}
	s.log.Info().Str("quote", idea.Quote).Str("search", idea.VisualSearchTerm).Str("language", idea.Language).Msg("new idea")
}

// Render produces the final video for the current idea, fetching a background
// and picking a random style first if none are cached.
func (s *Session) Render(ctx context.Context, sink progress.Sink) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sink = progress.OrNop(sink)
	if s.idea == nil {
		s.save("render", types.ErrNoIdea)
		return "", types.ErrNoIdea
	}
	sink.Report(progressIdea)

	if s.bg == nil {
		asset, err := s.fetch(ctx, "", progress.Range(sink, progressIdea, progressFetched))
		if err != nil {
			s.save("render", err)
			return "", err
		}
		s.bg = &asset
	}
	sink.Report(progressFetched)

	if s.styleName == "" {
		s.styleName = s.deps.Styles.Random().Name
	}
	out, err := s.compose(ctx, progress.Range(sink, progressFetched, progressComposed))
	s.save("render", err)
	return out, err
}

// SwapBackground always fetches a different clip for the same idea and style.
// If a render existed it is redone with the new clip; otherwise the new clip
// waits for the next Render. A failed fetch keeps the previous clip and render.
func (s *Session) SwapBackground(ctx context.Context, sink progress.Sink) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sink = progress.OrNop(sink)
	if s.idea == nil {
		s.save("swap_background", types.ErrNoIdea)
		return "", types.ErrNoIdea
	}
	hadRender := s.artifact != ""

	avoid := ""
	if s.bg != nil {
		avoid = s.bg.SourceVideoID
	}
	fetchSink := sink
	if hadRender {
		fetchSink = progress.Range(sink, progressIdea, progressFetched)
	}
	asset, err := s.fetch(ctx, avoid, fetchSink)
	if err != nil {
		s.save("swap_background", err)
		return "", err
	}
	s.bg = &asset

	if !hadRender {
		s.save("swap_background", nil)
		return "", nil
	}
	// the old render no longer matches the cached background
	s.dropArtifact()
	out, err := s.compose(ctx, progress.Range(sink, progressFetched, progressComposed))
	s.save("swap_background", err)
	return out, err
}

// CycleStyle advances to the next style in catalog order (random when none has
// been chosen yet) and re-renders right away when a background is cached.
// The returned path is empty when nothing was rendered.
func (s *Session) CycleStyle(ctx context.Context, sink progress.Sink) (types.Style, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idea == nil {
		s.save("cycle_style", types.ErrNoIdea)
		return types.Style{}, "", types.ErrNoIdea
	}
	var next types.Style
	if s.styleName == "" {
		next = s.deps.Styles.Random()
	} else {
		next = s.deps.Styles.NextAfter(s.styleName)
	}
	s.styleName = next.Name

	if s.bg == nil {
		s.save("cycle_style", nil)
		return next, "", nil
	}
	s.dropArtifact()
	out, err := s.compose(ctx, progress.Range(sink, progressFetched, progressComposed))
	s.save("cycle_style", err)
	return next, out, err
}

// UseStyle picks a style by exact name for the next render. Unlike the
// catalog's ByName it fails on unknown names.
func (s *Session) UseStyle(name string) (types.Style, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idea == nil {
		return types.Style{}, types.ErrNoIdea
	}
	st, ok := s.deps.Styles.Lookup(name)
	if !ok {
		return types.Style{}, fmt.Errorf("unknown style %q (have %s)", name, strings.Join(s.deps.Styles.Names(), ", "))
	}
	if st.Name != s.styleName {
		s.styleName = st.Name
		s.dropArtifact()
	}
	s.save("use_style", nil)
	return st, nil
}

func (s *Session) fetch(ctx context.Context, avoid string, sink progress.Sink) (types.BackgroundAsset, error) {
	return s.deps.Backgrounds.Fetch(ctx, background.Request{
		SearchTerm: s.idea.VisualSearchTerm,
		Dest:       filepath.Join(s.dir, BackgroundFile),
		AvoidID:    avoid,
	}, sink)
}

// compose renders from the cached idea, background and style. On failure the
// stale artifact is dropped so nothing points at a video of another combination.
func (s *Session) compose(ctx context.Context, sink progress.Sink) (string, error) {
	out, err := s.deps.Composer.Compose(ctx, compose.Request{
		Background: s.bg.LocalPath,
		Text:       s.idea.Quote,
		Style:      s.deps.Styles.ByName(s.styleName),
		Output:     filepath.Join(s.dir, ArtifactFile),
		Duration:   s.opts.Duration,
	}, sink)
	if err != nil {
		s.dropArtifact()
		return "", err
	}
	s.artifact = out
	return out, nil
}

func (s *Session) dropArtifact() {
	if s.artifact != "" {
		_ = os.Remove(s.artifact)
	}
	s.artifact = ""
}

// Artifact returns the rendered video path after checking it still exists.
// A vanished file clears the reference and returns ErrArtifactMissing.
func (s *Session) Artifact() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkArtifact()
}

func (s *Session) checkArtifact() (string, error) {
	if s.artifact == "" {
		return "", types.ErrNoRender
	}
	if _, err := os.Stat(s.artifact); err != nil {
		s.log.Warn().Str("artifact", s.artifact).Msg("rendered video is gone")
		s.artifact = ""
		s.save("artifact", types.ErrArtifactMissing)
		return "", types.ErrArtifactMissing
	}
	return s.artifact, nil
}

// Export copies the rendered video to dst
func (s *Session) Export(dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.checkArtifact()
	if err != nil {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		err = fmt.Errorf("export to %s: %w", dst, err)
		s.save("export", err)
		return err
	}
	s.log.Info().Str("dst", dst).Msg("exported")
	s.save("export", nil)
	return nil
}

// Publish uploads the rendered video with the current idea's caption and hashtags
func (s *Session) Publish(ctx context.Context, sink progress.Sink) (types.PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deps.Publisher == nil {
		return types.PublishResult{}, ErrNoPublisher
	}
	path, err := s.checkArtifact()
	if err != nil {
		return types.PublishResult{}, err
	}
	res, err := s.deps.Publisher.Publish(ctx, path, *s.idea, sink)
	if err != nil {
		s.save("publish", err)
		return types.PublishResult{}, err
	}
	if err := writeJSON(filepath.Join(s.dir, PublishFile), res); err != nil {
		s.log.Warn().Err(err).Msg("could not record publish result")
	}
	s.save("publish", nil)
	return res, nil
}

// Snapshot returns a copy of the session's cached state
func (s *Session) Snapshot() types.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() types.SessionSnapshot {
	snap := types.SessionSnapshot{
		SessionID:     s.id,
		State:         s.state().String(),
		UpdatedAt:     s.now().UTC().Format(time.RFC3339),
		StyleName:     s.styleName,
		FinalArtifact: s.artifact,
		LastAction:    s.lastAction,
		LastError:     s.lastErr,
	}
	if s.idea != nil {
		idea := *s.idea
		snap.Idea = &idea
	}
	if s.bg != nil {
		bg := *s.bg
		snap.Background = &bg
	}
	return snap
}

// save records the outcome of an intent and writes session.json
func (s *Session) save(action string, err error) {
	s.lastAction = action
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
		s.log.Warn().Err(err).Str("action", action).Str("state", s.state().String()).Msg("action failed")
	} else {
		s.log.Debug().Str("action", action).Str("state", s.state().String()).Msg("action done")
	}
	if werr := writeJSON(filepath.Join(s.dir, SnapshotFile), s.snapshot()); werr != nil {
		s.log.Warn().Err(werr).Msg("could not write session snapshot")
	}
}

// Close releases the directory lock and removes the directory unless Keep was set
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.lock.release()
	s.lock = dirLock{}
	s.log.Info().Bool("kept", s.opts.Keep).Msg("session closed")
	if s.opts.Keep {
		return err
	}
	if rmErr := os.RemoveAll(s.dir); rmErr != nil && err == nil {
		err = fmt.Errorf("remove session directory %s: %w", s.dir, rmErr)
	}
	return err
}
