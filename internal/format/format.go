// Package format negotiates yt-dlp format selectors and normalizes the
// encoding tables returned by a probe.
package format

import (
	"fmt"
	"sort"
	"strconv"

	"mediadlapi/internal/models"
	"mediadlapi/internal/platform"
)

// MergedContainer is the single output container forced whenever separate
// video/audio streams are merged.
const MergedContainer = "mp4"

// MaxEncodings caps the encoding table returned to clients.
const MaxEncodings = 15

const defaultFPS = 30

// defaultChain prefers mp4 video up to 2160p merged with m4a audio, then
// uncapped mp4+m4a, then a pre-muxed mp4, then whatever is best. The
// extractor resolves the chain left to right at fetch time.
const defaultChain = "bestvideo[ext=mp4][height<=2160]+bestaudio[ext=m4a]/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Selector returns the format-selector expression for a fetch. formatID is
// the caller's requested format, empty for "best available".
func Selector(p platform.Platform, formatID string) string {
	if p.Category() == platform.CategoryShortForm {
		// Short-form sources are pre-muxed; no merge attempted.
		if formatID == "" {
			return "best"
		}
		return formatID
	}
	if formatID != "" {
		return formatID + "+bestaudio[ext=m4a]/bestaudio"
	}
	return defaultChain
}

// FilterAndRank keeps the usable video encodings for the platform, sorts
// them by descending vertical resolution, drops duplicate heights keeping
// the first occurrence, and caps the result at MaxEncodings.
func FilterAndRank(formats []models.RawFormat, p platform.Platform) []models.Encoding {
	shortForm := p.Category() == platform.CategoryShortForm

	encodings := make([]models.Encoding, 0, len(formats))
	for _, f := range formats {
		if f.VCodec == "" || f.VCodec == "none" {
			continue
		}
		if !shortForm && (f.Ext != MergedContainer || f.Height <= 0) {
			continue
		}
		encodings = append(encodings, toEncoding(f))
	}

	// Stable sort keeps provider order among equal heights so first-wins
	// dedup picks the provider's preferred variant.
	sort.SliceStable(encodings, func(i, j int) bool {
		return encodings[i].Height > encodings[j].Height
	})

	seen := make(map[int]bool)
	unique := encodings[:0]
	for _, e := range encodings {
		if seen[e.Height] {
			continue
		}
		seen[e.Height] = true
		unique = append(unique, e)
	}
	if len(unique) > MaxEncodings {
		unique = unique[:MaxEncodings]
	}
	return unique
}

func toEncoding(f models.RawFormat) models.Encoding {
	quality := f.FormatNote
	if quality == "" {
		quality = fmt.Sprintf("%dp", f.Height)
	}
	resolution := ""
	if f.Height > 0 {
		resolution = fmt.Sprintf("%dx%d", f.Width, f.Height)
	}
	fps := f.FPS
	if fps == 0 {
		fps = defaultFPS
	}
	filesize := "N/A"
	if f.Filesize > 0 {
		filesize = strconv.FormatFloat(float64(f.Filesize)/1024/1024, 'f', 2, 64)
	}
	return models.Encoding{
		FormatID:   f.FormatID,
		Quality:    quality,
		Resolution: resolution,
		Height:     f.Height,
		Ext:        f.Ext,
		FPS:        fps,
		FilesizeMB: filesize,
		VCodec:     f.VCodec,
		ACodec:     f.ACodec,
	}
}
