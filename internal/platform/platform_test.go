package platform

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", YouTube},
		{"https://youtu.be/dQw4w9WgXcQ", YouTube},
		{"https://www.tiktok.com/@user/video/123", TikTok},
		{"https://vt.tiktok.com/ZS123/", TikTok},
		{"https://www.instagram.com/reel/ABC123/", Instagram},
		{"https://www.facebook.com/watch?v=123", Facebook},
		{"https://fb.watch/abc/", Facebook},
		{"https://twitter.com/user/status/123", Twitter},
		{"https://x.com/user/status/123", Twitter},
		{"https://vimeo.com/123456789", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := Detect(tt.url); got != tt.expected {
				t.Errorf("Detect(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "youtube watch URL with playlist and timestamp",
			url:      "https://www.youtube.com/watch?v=abc123&list=PL1&t=30",
			expected: "https://www.youtube.com/watch?v=abc123",
		},
		{
			name:     "youtube watch URL with tracking params",
			url:      "https://www.youtube.com/watch?si=xyz&v=abc123&feature=share",
			expected: "https://www.youtube.com/watch?v=abc123",
		},
		{
			name:     "already canonical",
			url:      "https://www.youtube.com/watch?v=abc123",
			expected: "https://www.youtube.com/watch?v=abc123",
		},
		{
			name:     "youtu.be short link has no v param, passes through",
			url:      "https://youtu.be/abc123?t=30",
			expected: "https://youtu.be/abc123?t=30",
		},
		{
			name:     "tiktok passes through untouched",
			url:      "https://www.tiktok.com/@user/video/1?is_copy_url=1",
			expected: "https://www.tiktok.com/@user/video/1?is_copy_url=1",
		},
		{
			name:     "unknown platform passes through",
			url:      "https://vimeo.com/123?ref=home",
			expected: "https://vimeo.com/123?ref=home",
		},
		{
			name:     "malformed youtube URL degrades to passthrough",
			url:      "https://youtube.com/watch?v=%zz",
			expected: "https://youtube.com/watch?v=%zz",
		},
		{
			name:     "unparseable URL never raises",
			url:      "http://youtube.com/a b\x7f",
			expected: "http://youtube.com/a b\x7f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Normalize(tt.url)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/watch?v=abc123&list=PL1&t=30",
		"https://youtu.be/abc123",
		"https://www.tiktok.com/@user/video/1",
		"not a url at all",
	}
	for _, u := range urls {
		_, once := Normalize(u)
		_, twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", u, once, twice)
		}
	}
}
