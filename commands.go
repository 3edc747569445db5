package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	idea "reel-studio/01_idea"
	style "reel-studio/03_style"
	"reel-studio/progress"
	"reel-studio/studio"
	"reel-studio/types"
)

func runStudio(args []string) error {
	fs, cfgPath := newFlagSet("studio")
	provider := fs.String("provider", "", "groq (fast) or gemini (fallback)")
	exportDir := fs.String("export-dir", "exports", "default directory for exports")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(*cfgPath, true)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.selectProvider(*provider); err != nil {
		return err
	}

	sess, err := a.openSession(0)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := signalContext()
	defer cancel()
	return studio.Run(ctx, sess, a.ideas, *exportDir)
}

func runGenerate(args []string) error {
	fs, cfgPath := newFlagSet("generate")
	provider := fs.String("provider", "", "groq (fast) or gemini (fallback)")
	jsonOut := fs.Bool("json", false, "print the idea as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(*cfgPath, false)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.selectProvider(*provider); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	got, err := a.ideas.Generate(ctx, a.cfg.Profile.Persona, a.cfg.Profile.Tone)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(got)
	}
	printIdea(got)
	return nil
}

func runRender(args []string) error {
	fs, cfgPath := newFlagSet("render")
	provider := fs.String("provider", "", "groq (fast) or gemini (fallback)")
	ideaFile := fs.String("idea", "", "idea.json to render instead of generating one")
	quote := fs.String("quote", "", "hand-written quote (needs --search)")
	search := fs.String("search", "", "stock video search term for --quote")
	caption := fs.String("caption", "", "caption for --quote")
	hashtags := fs.String("hashtags", "", "hashtags for --quote")
	styleName := fs.String("style", "", "text style name (default: random)")
	duration := fs.Float64("duration", 0, "length in seconds (default: random within the configured range)")
	out := fs.String("out", "final_reel.mp4", "where to write the reel")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *duration < 0 || math.IsNaN(*duration) {
		return errors.New("--duration must be positive")
	}
	if *ideaFile != "" && *quote != "" {
		return errors.New("use either --idea or --quote, not both")
	}

	a, err := setup(*cfgPath, false)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.selectProvider(*provider); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sess, err := a.openSession(*duration)
	if err != nil {
		return err
	}
	defer sess.Close()

	switch {
	case *ideaFile != "":
		loaded, err := readIdea(*ideaFile)
		if err != nil {
			return err
		}
		if err := sess.UseIdea(loaded); err != nil {
			return err
		}
	case *quote != "":
		manual, err := idea.Manual(*quote, *search, *caption, *hashtags)
		if err != nil {
			return err
		}
		if err := sess.UseIdea(manual); err != nil {
			return err
		}
	default:
		if _, err := sess.Generate(ctx); err != nil {
			return err
		}
	}
	if *styleName != "" {
		if _, err := sess.UseStyle(*styleName); err != nil {
			return err
		}
	}

	printIdea(*sess.Snapshot().Idea)
	if _, err := sess.Render(ctx, newConsoleBar(os.Stderr)); err != nil {
		return err
	}
	if err := sess.Export(*out); err != nil {
		return err
	}
	snap := sess.Snapshot()
	fmt.Printf("style: %s\n", snap.StyleName)
	fmt.Printf("reel: %s\n", *out)
	return nil
}

func runStyles(args []string) error {
	fs, _ := newFlagSet("styles")
	jsonOut := fs.Bool("json", false, "print styles as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cat := style.Default()
	if *jsonOut {
		styles := make([]types.Style, 0, cat.Len())
		for _, name := range cat.Names() {
			st, _ := cat.Lookup(name)
			styles = append(styles, st)
		}
		return printJSON(styles)
	}
	for _, name := range cat.Names() {
		st, _ := cat.Lookup(name)
		fmt.Printf("%-14s font=%s color=%s stroke=%s/%g size=%d y=%d\n",
			st.Name, st.Font, st.TextColor, st.StrokeColor, st.StrokeWidth, st.FontSize, st.VerticalPosition)
	}
	return nil
}

func runPublish(args []string) error {
	fs, cfgPath := newFlagSet("publish")
	video := fs.String("video", "", "rendered reel to upload")
	ideaFile := fs.String("idea", "", "idea.json with the caption and hashtags")
	jsonOut := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *video == "" || *ideaFile == "" {
		return errors.New("publish needs --video and --idea")
	}

	a, err := setup(*cfgPath, false)
	if err != nil {
		return err
	}
	defer a.close()

	loaded, err := readIdea(*ideaFile)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	res, err := a.uploader.Publish(ctx, *video, loaded, newConsoleBar(os.Stderr))
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("published: %s\n", res.VideoURL)
	return nil
}

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func runDoctor(args []string) error {
	fs, cfgPath := newFlagSet("doctor")
	jsonOut := fs.Bool("json", false, "print JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := setup(*cfgPath, false)
	if err != nil {
		return err
	}
	defer a.close()

	checks := []doctorCheck{
		binaryCheck("dependency:ffmpeg", a.cfg.Render.FFmpegPath),
		binaryCheck("dependency:ffprobe", a.cfg.Render.FFprobePath),
		keyCheck("key:"+string(a.ideas.Provider()), a.ideas.Ready(), "selected idea provider"),
		keyCheck("key:pexels", a.creds.PexelsKey != "", "PEXELS_API_KEY"),
		keyCheck("key:youtube", a.creds.HasYouTube(), "YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, YOUTUBE_REFRESH_TOKEN (publish only)"),
		writableCheck("directory:sessions", a.cfg.Paths.Sessions),
		writableCheck("directory:logs", a.cfg.Paths.Logs),
	}
	for _, name := range a.styles.Names() {
		st, _ := a.styles.Lookup(name)
		path := style.FontPath(a.cfg.Render.FontsDir, st)
		c := doctorCheck{Name: "font:" + st.Font, OK: true, Message: path}
		if path == "" {
			c.Message = "missing in " + a.cfg.Render.FontsDir + ", ffmpeg default font is used"
		}
		checks = appendUnique(checks, c)
	}

	ok := true
	for _, c := range checks {
		// youtube is optional
		if !c.OK && c.Name != "key:youtube" {
			ok = false
		}
	}
	if *jsonOut {
		return printJSON(map[string]any{"ok": ok, "checks": checks})
	}
	for _, c := range checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("%s: %s (%s)\n", c.Name, status, c.Message)
	}
	if !ok {
		return errors.New("doctor checks failed")
	}
	fmt.Println("doctor: all checks passed")
	return nil
}

func binaryCheck(name, bin string) doctorCheck {
	path, err := exec.LookPath(bin)
	if err != nil {
		return doctorCheck{Name: name, Message: bin + " not found in PATH"}
	}
	return doctorCheck{Name: name, OK: true, Message: path}
}

func keyCheck(name string, ok bool, what string) doctorCheck {
	if ok {
		return doctorCheck{Name: name, OK: true, Message: "set"}
	}
	return doctorCheck{Name: name, Message: what + " not set"}
}

func writableCheck(name, dir string) doctorCheck {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return doctorCheck{Name: name, Message: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return doctorCheck{Name: name, Message: err.Error()}
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	abs, _ := filepath.Abs(dir)
	return doctorCheck{Name: name, OK: true, Message: abs}
}

func appendUnique(checks []doctorCheck, c doctorCheck) []doctorCheck {
	for _, have := range checks {
		if have.Name == c.Name {
			return checks
		}
	}
	return append(checks, c)
}

func readIdea(path string) (types.Idea, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Idea{}, fmt.Errorf("read idea %s: %w", path, err)
	}
	var got types.Idea
	if err := json.Unmarshal(data, &got); err != nil {
		return types.Idea{}, fmt.Errorf("parse idea %s: %w", path, err)
	}
	if strings.TrimSpace(got.Quote) == "" || strings.TrimSpace(got.VisualSearchTerm) == "" {
		return types.Idea{}, fmt.Errorf("idea %s needs quote and visual_search_term", path)
	}
	return got, nil
}

func printIdea(i types.Idea) {
	fmt.Printf("quote: %s\n", i.Quote)
	fmt.Printf("language: %s\n", i.Language)
	fmt.Printf("search: %s\n", i.VisualSearchTerm)
	if i.Caption != "" {
		fmt.Printf("caption: %s\n", i.Caption)
	}
	if i.Hashtags != "" {
		fmt.Printf("hashtags: %s\n", i.Hashtags)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// newConsoleBar prints whole-percent steps of 5 to w
func newConsoleBar(w *os.File) progress.Sink {
	last := -1
	return progress.Func(func(f float64) {
		pct := int(progress.Clamp(f)*100) / 5 * 5
		if pct <= last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r%3d%%", pct)
		if pct == 100 {
			fmt.Fprintln(w)
		}
	})
}
