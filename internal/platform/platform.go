package platform

import (
	"net/url"
	"strings"
)

// Platform identifies the source site of a media URL.
type Platform string

const (
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	Unknown   Platform = "unknown"
)

// Category groups platforms by download policy. Short-form sources are
// typically pre-muxed, so no video+audio merge is attempted for them.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryYouTube
	CategoryShortForm
)

func (p Platform) Category() Category {
	switch p {
	case YouTube:
		return CategoryYouTube
	case TikTok:
		return CategoryShortForm
	default:
		return CategoryGeneric
	}
}

// Detect matches known host fragments in priority order. Unrecognized URLs
// map to Unknown rather than an error.
func Detect(raw string) Platform {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "youtube.com"), strings.Contains(s, "youtu.be"):
		return YouTube
	case strings.Contains(s, "tiktok.com"), strings.Contains(s, "vt.tiktok.com"):
		return TikTok
	case strings.Contains(s, "instagram.com"):
		return Instagram
	case strings.Contains(s, "facebook.com"), strings.Contains(s, "fb.watch"):
		return Facebook
	case strings.Contains(s, "twitter.com"), strings.Contains(s, "x.com"):
		return Twitter
	default:
		return Unknown
	}
}

// Normalize returns the platform and the canonical URL used for all
// downstream extractor calls. YouTube watch URLs are rewritten to keep only
// the video id, dropping playlist position, timestamps and tracking
// parameters. Everything else, including malformed input, passes through
// unchanged.
func Normalize(raw string) (Platform, string) {
	p := Detect(raw)
	if p != YouTube {
		return p, raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return p, raw
	}
	if v := u.Query().Get("v"); v != "" {
		return p, "https://www.youtube.com/watch?v=" + v
	}
	return p, raw
}
