package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	background "reel-studio/02_background"
	style "reel-studio/03_style"
	compose "reel-studio/04_compose"
	"reel-studio/progress"
	"reel-studio/types"
)

type fakeIdeas struct {
	n   int
	err error
}

func (f *fakeIdeas) Generate(_ context.Context, persona, _ string) (types.Idea, error) {
	if f.err != nil {
		return types.Idea{}, f.err
	}
	f.n++
	return types.Idea{
		Quote:            fmt.Sprintf("quote %d from %s", f.n, persona),
		VisualSearchTerm: "rain window night",
		Language:         "English",
		Caption:          "caption",
		Hashtags:         "#rain",
	}, nil
}

type fakeFetcher struct {
	n      int
	err    error
	avoids []string
}

func (f *fakeFetcher) Fetch(_ context.Context, req background.Request, sink progress.Sink) (types.BackgroundAsset, error) {
	f.avoids = append(f.avoids, req.AvoidID)
	if f.err != nil {
		return types.BackgroundAsset{}, f.err
	}
	f.n++
	id := fmt.Sprintf("clip-%d", f.n)
	if err := os.WriteFile(req.Dest, []byte(id), 0o644); err != nil {
		return types.BackgroundAsset{}, err
	}
	progress.OrNop(sink).Report(1)
	return types.BackgroundAsset{LocalPath: req.Dest, SourceVideoID: id, SearchTerm: req.SearchTerm, Page: 1}, nil
}

// fakeComposer writes "<background id>|<style>|<text>" so tests can check what a render was made from
type fakeComposer struct {
	calls int
	err   error
}

func (f *fakeComposer) Compose(_ context.Context, req compose.Request, sink progress.Sink) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	bg, err := os.ReadFile(req.Background)
	if err != nil {
		return "", err
	}
	body := strings.Join([]string{string(bg), req.Style.Name, req.Text}, "|")
	if err := os.WriteFile(req.Output, []byte(body), 0o644); err != nil {
		return "", err
	}
	progress.OrNop(sink).Report(1)
	return req.Output, nil
}

type fakePublisher struct {
	paths []string
}

func (f *fakePublisher) Publish(_ context.Context, path string, idea types.Idea, _ progress.Sink) (types.PublishResult, error) {
	f.paths = append(f.paths, path)
	return types.PublishResult{VideoID: "yt1", Title: idea.Quote}, nil
}

type fixture struct {
	s     *Session
	ideas *fakeIdeas
	bg    *fakeFetcher
	comp  *fakeComposer
	pub   *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ideas: &fakeIdeas{}, bg: &fakeFetcher{}, comp: &fakeComposer{}, pub: &fakePublisher{}}
	s, err := Open(Options{Root: t.TempDir(), Persona: "ThinkingStrom", Keep: true}, Deps{
		Ideas:       f.ideas,
		Backgrounds: f.bg,
		Composer:    f.comp,
		Publisher:   f.pub,
		Styles:      style.Default(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	f.s = s
	return f
}

func (f *fixture) rendered(t *testing.T) []string {
	t.Helper()
	path, err := f.s.Artifact()
	if err != nil {
		t.Fatalf("Artifact: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(string(data), "|")
}

func TestIntentsNeedAnIdea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.s.Render(ctx, nil); !errors.Is(err, types.ErrNoIdea) {
		t.Fatalf("Render: %v", err)
	}
	if _, err := f.s.SwapBackground(ctx, nil); !errors.Is(err, types.ErrNoIdea) {
		t.Fatalf("SwapBackground: %v", err)
	}
	if _, _, err := f.s.CycleStyle(ctx, nil); !errors.Is(err, types.ErrNoIdea) {
		t.Fatalf("CycleStyle: %v", err)
	}
	if _, err := f.s.Artifact(); !errors.Is(err, types.ErrNoRender) {
		t.Fatalf("Artifact: %v", err)
	}
	if f.bg.n != 0 || f.comp.calls != 0 {
		t.Fatal("nothing should be fetched or composed without an idea")
	}
	if f.s.State() != Idle {
		t.Fatalf("state = %v", f.s.State())
	}
}

func TestRenderFetchesPicksAndComposes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idea, err := f.s.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f.s.State() != HasIdea {
		t.Fatalf("state = %v", f.s.State())
	}

	var reports []float64
	path, err := f.s.Render(ctx, progress.Func(func(v float64) { reports = append(reports, v) }))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if filepath.Base(path) != ArtifactFile || filepath.Dir(path) != f.s.Dir() {
		t.Fatalf("artifact path = %q", path)
	}
	got := f.rendered(t)
	if got[0] != "clip-1" || got[2] != idea.Quote {
		t.Fatalf("render made from %v", got)
	}
	if _, ok := style.Default().Lookup(got[1]); !ok {
		t.Fatalf("unknown style %q", got[1])
	}
	if f.s.State() != HasRender {
		t.Fatalf("state = %v", f.s.State())
	}
	if reports[0] != 0.10 || reports[len(reports)-1] < 0.999 {
		t.Fatalf("progress = %v", reports)
	}

	// a second render reuses the cached background and style
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	again := f.rendered(t)
	if f.bg.n != 1 || again[0] != "clip-1" || again[1] != got[1] {
		t.Fatalf("re-render should reuse background and style, got %v after %d fetches", again, f.bg.n)
	}
}

func TestGenerateClearsCachedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	old, err := f.s.Render(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	snap := f.s.Snapshot()
	if snap.Background != nil || snap.StyleName != "" || snap.FinalArtifact != "" {
		t.Fatalf("cached state survived a new idea: %+v", snap)
	}
	if snap.State != HasIdea.String() || !strings.HasPrefix(snap.Idea.Quote, "quote 2") {
		t.Fatalf("snapshot = %+v", snap)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("old render should be removed with its idea")
	}

	// next render fetches a fresh background
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if f.bg.n != 2 {
		t.Fatalf("fetches = %d", f.bg.n)
	}
}

func TestGenerateFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	before := f.s.Snapshot()

	f.ideas.err = fmt.Errorf("%w: groq: overloaded", types.ErrProviderFailed)
	if _, err := f.s.Generate(ctx); !errors.Is(err, types.ErrProviderFailed) {
		t.Fatalf("Generate: %v", err)
	}
	after := f.s.Snapshot()
	if after.Idea.Quote != before.Idea.Quote || after.FinalArtifact != before.FinalArtifact || after.State != HasRender.String() {
		t.Fatalf("state changed on failure: %+v", after)
	}
	if !strings.Contains(after.LastError, "overloaded") {
		t.Fatalf("last error = %q", after.LastError)
	}
}

func TestSwapKeepsIdeaAndStyle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	first := f.rendered(t)

	path, err := f.s.SwapBackground(ctx, nil)
	if err != nil {
		t.Fatalf("SwapBackground: %v", err)
	}
	if path == "" {
		t.Fatal("swap after a render should re-render")
	}
	second := f.rendered(t)
	if second[0] != "clip-2" {
		t.Fatalf("re-render should use the new background, got %v", second)
	}
	if second[1] != first[1] || second[2] != first[2] {
		t.Fatalf("swap changed style or text: %v -> %v", first, second)
	}
	if f.bg.avoids[1] != "clip-1" {
		t.Fatalf("swap should avoid the current clip, avoids = %v", f.bg.avoids)
	}
}

func TestSwapBeforeRenderWaits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	path, err := f.s.SwapBackground(ctx, nil)
	if err != nil || path != "" {
		t.Fatalf("swap without a render: %q %v", path, err)
	}
	if f.comp.calls != 0 || f.s.State() != HasBackground {
		t.Fatalf("composed %d times, state %v", f.comp.calls, f.s.State())
	}
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if f.bg.n != 1 || f.rendered(t)[0] != "clip-1" {
		t.Fatal("render should use the swapped-in background")
	}
}

func TestSwapFailureKeepsPreviousRender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	f.bg.err = fmt.Errorf("%w: rain window night", types.ErrNoBackgroundFound)

	if _, err := f.s.SwapBackground(ctx, nil); !errors.Is(err, types.ErrNoBackgroundFound) {
		t.Fatalf("SwapBackground: %v", err)
	}
	if f.s.State() != HasRender || f.rendered(t)[0] != "clip-1" {
		t.Fatal("previous render should survive a failed swap")
	}
}

func TestCycleStyleWalksCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}

	// without a background only the style changes
	first, path, err := f.s.CycleStyle(ctx, nil)
	if err != nil || path != "" || f.comp.calls != 0 {
		t.Fatalf("cycle before render: %q %v calls=%d", path, err, f.comp.calls)
	}
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if f.rendered(t)[1] != first.Name {
		t.Fatal("render should keep the cycled style")
	}

	cat := style.Default()
	name := first.Name
	for i := 0; i < cat.Len(); i++ {
		st, path, err := f.s.CycleStyle(ctx, nil)
		if err != nil || path == "" {
			t.Fatalf("cycle %d: %q %v", i, path, err)
		}
		if want := cat.NextAfter(name).Name; st.Name != want {
			t.Fatalf("cycle %d: got %q want %q", i, st.Name, want)
		}
		if f.rendered(t)[1] != st.Name {
			t.Fatal("re-render should use the new style")
		}
		name = st.Name
	}
	if name != first.Name {
		t.Fatalf("cycling %d times should return to %q, got %q", cat.Len(), first.Name, name)
	}
	if f.bg.n != 1 {
		t.Fatalf("cycling styles refetched the background %d times", f.bg.n)
	}
}

func TestComposeFailureDropsStaleArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	before := f.s.Snapshot()

	f.comp.err = fmt.Errorf("%w: ffmpeg failed", types.ErrComposeFailed)
	if _, _, err := f.s.CycleStyle(ctx, nil); !errors.Is(err, types.ErrComposeFailed) {
		t.Fatalf("CycleStyle: %v", err)
	}
	snap := f.s.Snapshot()
	if snap.State != HasBackground.String() || snap.FinalArtifact != "" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Background.SourceVideoID != before.Background.SourceVideoID || snap.StyleName == before.StyleName {
		t.Fatal("background and the new style should be retained")
	}
	if _, err := os.Stat(before.FinalArtifact); !os.IsNotExist(err) {
		t.Fatal("stale render should be removed")
	}
}

func TestRenderFetchFailureStaysWithIdea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	f.bg.err = fmt.Errorf("%w: pexels", types.ErrMissingKey)
	if _, err := f.s.Render(ctx, nil); !errors.Is(err, types.ErrMissingKey) {
		t.Fatalf("Render: %v", err)
	}
	if f.s.State() != HasIdea || f.comp.calls != 0 {
		t.Fatalf("state %v, compose calls %d", f.s.State(), f.comp.calls)
	}
}

func TestMissingArtifactAsksToRenderAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	path, err := f.s.Render(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Artifact(); !errors.Is(err, types.ErrArtifactMissing) {
		t.Fatalf("Artifact: %v", err)
	}
	if f.s.State() != HasBackground {
		t.Fatalf("state = %v", f.s.State())
	}
	if err := f.s.Export(filepath.Join(t.TempDir(), "out.mp4")); !errors.Is(err, types.ErrNoRender) {
		t.Fatalf("Export after clear: %v", err)
	}
}

func TestExportCopiesBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	path, err := f.s.Render(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "exports", "reel.mp4")
	if err := f.s.Export(dst); err != nil {
		t.Fatalf("Export: %v", err)
	}
	a, _ := os.ReadFile(path)
	b, _ := os.ReadFile(dst)
	if string(a) != string(b) || len(b) == 0 {
		t.Fatalf("export differs: %q vs %q", a, b)
	}
}

func TestUseIdeaAndPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manual := types.Idea{Quote: "Hand written.", VisualSearchTerm: "ocean", Language: types.ManualLanguage}

	if err := f.s.UseIdea(types.Idea{Quote: "no search term"}); err == nil {
		t.Fatal("incomplete idea should be rejected")
	}
	if err := f.s.UseIdea(manual); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Publish(ctx, nil); !errors.Is(err, types.ErrNoRender) {
		t.Fatalf("publish before render: %v", err)
	}
	path, err := f.s.Render(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.s.Publish(ctx, nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.VideoID != "yt1" || res.Title != manual.Quote || f.pub.paths[0] != path {
		t.Fatalf("publish result %+v paths %v", res, f.pub.paths)
	}
	if _, err := os.Stat(filepath.Join(f.s.Dir(), PublishFile)); err != nil {
		t.Fatalf("publish record missing: %v", err)
	}
}

func TestSessionFilesAndLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if len(f.s.ID()) != 8 {
		t.Fatalf("id = %q", f.s.ID())
	}
	if _, err := acquireLock(f.s.Dir()); err == nil {
		t.Fatal("a second lock on the same session directory should fail")
	}

	idea, err := f.s.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk map[string]string
	if err := readJSON(filepath.Join(f.s.Dir(), IdeaFile), &onDisk); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"quote", "visual_search_term", "language", "caption", "hashtags"} {
		if _, ok := onDisk[k]; !ok {
			t.Fatalf("idea.json missing %q: %v", k, onDisk)
		}
	}
	if onDisk["quote"] != idea.Quote {
		t.Fatalf("idea.json quote = %q", onDisk["quote"])
	}

	data, err := os.ReadFile(filepath.Join(f.s.Dir(), SnapshotFile))
	if err != nil {
		t.Fatal(err)
	}
	var snap types.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.SessionID != f.s.ID() || snap.State != "has_idea" || snap.LastAction != "generate" {
		t.Fatalf("session.json = %+v", snap)
	}
}

func TestCloseRemovesDirectory(t *testing.T) {
	root := t.TempDir()
	s, err := Open(Options{Root: root}, Deps{Ideas: &fakeIdeas{}, Backgrounds: &fakeFetcher{}, Composer: &fakeComposer{}})
	if err != nil {
		t.Fatal(err)
	}
	dir := s.Dir()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("session directory should be removed")
	}
	if _, err := s.Publish(context.Background(), nil); !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("Publish without publisher: %v", err)
	}
}

func TestUseStyleIsStrict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.UseStyle(style.NeonBlue); !errors.Is(err, types.ErrNoIdea) {
		t.Fatalf("UseStyle without idea: %v", err)
	}
	if _, err := f.s.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.UseStyle("Comic Sans"); err == nil || !strings.Contains(err.Error(), style.ModernYellow) {
		t.Fatalf("unknown style should list the catalog: %v", err)
	}
	if _, err := f.s.UseStyle(style.NeonBlue); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Render(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if got := f.rendered(t)[1]; got != style.NeonBlue {
		t.Fatalf("rendered in %q", got)
	}
}
