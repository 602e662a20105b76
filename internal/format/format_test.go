package format

import (
	"fmt"
	"strings"
	"testing"

	"mediadlapi/internal/models"
	"mediadlapi/internal/platform"
)

func TestSelector(t *testing.T) {
	tests := []struct {
		name     string
		platform platform.Platform
		formatID string
		expected string
	}{
		{
			name:     "tiktok without format id is plain best",
			platform: platform.TikTok,
			formatID: "",
			expected: "best",
		},
		{
			name:     "tiktok with format id is the exact id",
			platform: platform.TikTok,
			formatID: "download_addr-0",
			expected: "download_addr-0",
		},
		{
			name:     "youtube with format id merges best audio",
			platform: platform.YouTube,
			formatID: "137",
			expected: "137+bestaudio[ext=m4a]/bestaudio",
		},
		{
			name:     "youtube without format id uses the fallback chain",
			platform: platform.YouTube,
			formatID: "",
			expected: defaultChain,
		},
		{
			name:     "unknown platform gets long-form treatment",
			platform: platform.Unknown,
			formatID: "",
			expected: defaultChain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Selector(tt.platform, tt.formatID); got != tt.expected {
				t.Errorf("Selector(%q, %q) = %q, want %q", tt.platform, tt.formatID, got, tt.expected)
			}
		})
	}
}

func TestSelectorChainShape(t *testing.T) {
	chain := Selector(platform.YouTube, "")
	terms := strings.Split(chain, "/")
	if len(terms) < 2 {
		t.Fatalf("expected a fallback chain, got %q", chain)
	}
	if !strings.Contains(terms[0], "height<=2160") {
		t.Errorf("first term should cap at 2160, got %q", terms[0])
	}
	if terms[len(terms)-1] != "best" {
		t.Errorf("last term should be unconditional best, got %q", terms[len(terms)-1])
	}
}

func rawFormat(id string, height int, ext, vcodec string) models.RawFormat {
	return models.RawFormat{
		FormatID: id,
		Ext:      ext,
		Width:    height * 16 / 9,
		Height:   height,
		VCodec:   vcodec,
		ACodec:   "none",
	}
}

func TestFilterAndRankLongForm(t *testing.T) {
	formats := []models.RawFormat{
		rawFormat("18", 360, "mp4", "avc1"),
		rawFormat("137", 1080, "mp4", "avc1"),
		rawFormat("248", 1080, "webm", "vp9"),   // wrong container
		rawFormat("140", 0, "m4a", "none"),      // audio only
		rawFormat("299", 1080, "mp4", "avc1.64"), // duplicate height
		rawFormat("136", 720, "mp4", "avc1"),
		rawFormat("sb0", 0, "mp4", "avc1"), // no height
	}

	got := FilterAndRank(formats, platform.YouTube)

	heights := make([]int, len(got))
	for i, e := range got {
		heights[i] = e.Height
	}
	want := []int{1080, 720, 360}
	if len(heights) != len(want) {
		t.Fatalf("got heights %v, want %v", heights, want)
	}
	for i := range want {
		if heights[i] != want[i] {
			t.Fatalf("got heights %v, want %v", heights, want)
		}
	}
	// First occurrence wins on duplicate heights.
	if got[0].FormatID != "137" {
		t.Errorf("dedup kept %q for 1080, want first occurrence 137", got[0].FormatID)
	}
}

func TestFilterAndRankShortForm(t *testing.T) {
	formats := []models.RawFormat{
		{FormatID: "download_addr-0", Ext: "mp4", VCodec: "h264", ACodec: "aac"},
		{FormatID: "audio", Ext: "mp3", VCodec: "none", ACodec: "mp3"},
		rawFormat("play_addr-0", 720, "mp4", "h264"),
	}

	got := FilterAndRank(formats, platform.TikTok)
	if len(got) != 2 {
		t.Fatalf("got %d encodings, want 2", len(got))
	}
	// Known resolution sorts above the unreported one.
	if got[0].FormatID != "play_addr-0" || got[1].FormatID != "download_addr-0" {
		t.Errorf("unexpected order: %q, %q", got[0].FormatID, got[1].FormatID)
	}
	if got[1].Resolution != "" {
		t.Errorf("unreported resolution should be empty, got %q", got[1].Resolution)
	}
}

func TestFilterAndRankCap(t *testing.T) {
	var formats []models.RawFormat
	for h := 1; h <= 40; h++ {
		formats = append(formats, rawFormat(fmt.Sprintf("f%d", h), h*10, "mp4", "avc1"))
	}
	got := FilterAndRank(formats, platform.YouTube)
	if len(got) != MaxEncodings {
		t.Errorf("got %d encodings, want cap of %d", len(got), MaxEncodings)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Height >= got[i-1].Height {
			t.Fatalf("not strictly descending at %d: %d >= %d", i, got[i].Height, got[i-1].Height)
		}
	}
}

func TestEncodingDefaults(t *testing.T) {
	f := models.RawFormat{FormatID: "137", Ext: "mp4", Width: 1920, Height: 1080, VCodec: "avc1"}
	got := FilterAndRank([]models.RawFormat{f}, platform.YouTube)
	if len(got) != 1 {
		t.Fatalf("got %d encodings, want 1", len(got))
	}
	e := got[0]
	if e.FPS != 30 {
		t.Errorf("unreported fps should default to 30, got %v", e.FPS)
	}
	if e.FilesizeMB != "N/A" {
		t.Errorf("unreported filesize should be N/A, got %q", e.FilesizeMB)
	}
	if e.Quality != "1080p" {
		t.Errorf("quality should fall back to height label, got %q", e.Quality)
	}
	if e.Resolution != "1920x1080" {
		t.Errorf("resolution = %q, want 1920x1080", e.Resolution)
	}
}
