package models

import "time"

// Encoding is one selectable quality option exposed by the extractor for a
// probed URL. FilesizeMB is a pre-formatted string because the extractor
// omits sizes for some formats ("N/A").
type Encoding struct {
	FormatID   string  `json:"format_id"`
	Quality    string  `json:"quality"`
	Resolution string  `json:"resolution"`
	Height     int     `json:"height"`
	Ext        string  `json:"ext"`
	FPS        float64 `json:"fps"`
	FilesizeMB string  `json:"filesize"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
}

// RawFormat mirrors one entry of the extractor's "formats" array as emitted
// by yt-dlp --dump-json. Only the fields the negotiator looks at are mapped.
type RawFormat struct {
	FormatID   string  `json:"format_id"`
	FormatNote string  `json:"format_note"`
	Ext        string  `json:"ext"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	Filesize   int64   `json:"filesize"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
}

// MediaInfo is the parsed result of a probe.
type MediaInfo struct {
	Title     string
	Thumbnail string
	Duration  int
	Author    string
	Formats   []RawFormat
}

type CleanupState string

const (
	CleanupPending   CleanupState = "pending"
	CleanupScheduled CleanupState = "scheduled"
	CleanupCompleted CleanupState = "completed"
	CleanupFailed    CleanupState = "failed"
)

// DownloadSession is the bookkeeping record for one fetch-and-deliver cycle.
// The ID is embedded in the output template so the produced artifact can be
// located afterwards by substring match.
type DownloadSession struct {
	ID             string       `json:"session_id"`
	URL            string       `json:"url"`
	Platform       string       `json:"platform"`
	Selector       string       `json:"selector"`
	OutputTemplate string       `json:"output_template"`
	ArtifactPath   string       `json:"artifact_path,omitempty"`
	DisplayName    string       `json:"display_name,omitempty"`
	Cleanup        CleanupState `json:"cleanup"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type VideoInfoRequest struct {
	URL string `json:"url"`
}

type DownloadRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

type VideoInfoResponse struct {
	Title     string     `json:"title"`
	Thumbnail string     `json:"thumbnail"`
	Duration  int        `json:"duration"`
	Author    string     `json:"author"`
	Platform  string     `json:"platform"`
	Formats   []Encoding `json:"formats"`
}
