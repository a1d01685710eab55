package app

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url    string
		wantID string
		wantOK bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?list=PLx&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", true},
		{"https://vimeo.com/12345", "", false},
		{"not a url", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		gotID, gotOK := ExtractVideoID(tt.url)
		if gotID != tt.wantID || gotOK != tt.wantOK {
			t.Errorf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tt.url, gotID, gotOK, tt.wantID, tt.wantOK)
		}
	}
}
