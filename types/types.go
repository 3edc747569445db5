package types

// ManualLanguage marks an Idea that was typed in by hand instead of generated.
const ManualLanguage = "Manual"

// Idea is one generated (or hand-written) reel concept.
// The JSON shape is shared by every producer and by idea.json on disk.
type Idea struct {
	Quote            string `json:"quote"`
	VisualSearchTerm string `json:"visual_search_term"`
	Language         string `json:"language"`
	Caption          string `json:"caption"`
	Hashtags         string `json:"hashtags"`
}

// IsManual reports whether the idea bypassed the text-generation step
func (i Idea) IsManual() bool {
	return i.Language == ManualLanguage
}

// Style is a named text overlay preset
type Style struct {
	Name             string  `json:"name" yaml:"name"`
	Font             string  `json:"font" yaml:"font"`
	TextColor        string  `json:"text_color" yaml:"text_color"`
	StrokeColor      string  `json:"stroke_color" yaml:"stroke_color"`
	StrokeWidth      float64 `json:"stroke_width" yaml:"stroke_width"`
	FontSize         int     `json:"font_size" yaml:"font_size"`
	VerticalPosition int     `json:"vertical_position" yaml:"vertical_position"`
}

// BackgroundAsset is a downloaded stock clip
type BackgroundAsset struct {
	LocalPath     string `json:"local_path"`
	SourceVideoID string `json:"source_video_id"`
	SearchTerm    string `json:"search_term"`
	Page          int    `json:"page"`
}

// SessionSnapshot is the per-session state file written after every action
type SessionSnapshot struct {
	SessionID     string           `json:"session_id"`
	State         string           `json:"state"`
	UpdatedAt     string           `json:"updated_at"`
	Idea          *Idea            `json:"idea,omitempty"`
	Background    *BackgroundAsset `json:"background,omitempty"`
	StyleName     string           `json:"style_name,omitempty"`
	FinalArtifact string           `json:"final_artifact,omitempty"`
	LastAction    string           `json:"last_action,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
}

// PublishResult is returned after a successful upload
type PublishResult struct {
	VideoID    string `json:"video_id"`
	VideoURL   string `json:"video_url"`
	Title      string `json:"title"`
	UploadedAt string `json:"uploaded_at"`
}
