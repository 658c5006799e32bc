package upload

import (
	"testing"

	"inkpost/internal/editor"
)

func TestIsVideoURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://cdn.example.test/post/a.mp4", want: true},
		{url: "https://cdn.example.test/post/A.MOV", want: true},
		{url: "/uploads/post/clip.webm", want: true},
		{url: "clip.avi", want: true},
		{url: "https://cdn.example.test/talk.ogg", want: true},
		{url: "https://cdn.example.test/talk.ogv", want: true},
		{url: "https://cdn.example.test/a.mp4?token=abc#t=10", want: true},
		{url: "https://cdn.example.test/a.png", want: false},
		{url: "https://cdn.example.test/watch?v=a.mp4", want: false},
		{url: "https://cdn.example.test/mp4", want: false},
		{url: "  ", want: false},
	}
	for _, tt := range tests {
		if got := IsVideoURL(tt.url); got != tt.want {
			t.Fatalf("IsVideoURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestFindVideos(t *testing.T) {
	text := "# Launch\n" +
		"See ![demo](https://cdn.example.test/demo.mp4) and [cover](https://cdn.example.test/cover.png).\n" +
		"é [clip \\[v2\\]](<https://cdn.example.test/clip.webm> \"Clip\")\n" +
		"<video controls src=\"https://cdn.example.test/stream\"></video> <a href='/uploads/talk.mov'>talk</a>"

	got := FindVideos(text)
	want := []VideoRef{
		{Name: "demo", URL: "https://cdn.example.test/demo.mp4", Pos: editor.Pos{Line: 1, Ch: 4}, Source: VideoFromEmbed},
		{Name: "clip [v2]", URL: "https://cdn.example.test/clip.webm", Pos: editor.Pos{Line: 2, Ch: 2}, Source: VideoFromLink},
		{URL: "https://cdn.example.test/stream", Pos: editor.Pos{Line: 3, Ch: 0}, Source: VideoFromTag},
		{URL: "/uploads/talk.mov", Pos: editor.Pos{Line: 3, Ch: 63}, Source: VideoFromAnchor},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d refs, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ref %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestFindVideosRoundTripsInsertedMarkup(t *testing.T) {
	buf := editor.NewBuffer("")
	if err := InsertLink(buf, "Demo [v2]", "https://videos.example.test/demo.mp4", MarkupLink); err != nil {
		t.Fatalf("insert link: %v", err)
	}
	refs := FindVideos(buf.Text())
	if len(refs) != 1 || refs[0].Name != "Demo [v2]" || refs[0].Source != VideoFromLink {
		t.Fatalf("unexpected refs %+v", refs)
	}
}

func TestFindVideosEmpty(t *testing.T) {
	if refs := FindVideos("no media here\n![img](a.png)"); len(refs) != 0 {
		t.Fatalf("expected no refs, got %+v", refs)
	}
}
