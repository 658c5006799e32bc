package server

import (
	"context"
	"strings"
	"testing"

	"inkpost/internal/editor"
	"inkpost/internal/models"
	"inkpost/internal/upload"
)

func TestLocalTransportRunsBatchIntoBuffer(t *testing.T) {
	env := newTestEnv(t, DefaultUploadPolicy(), Options{})
	transport := NewLocalTransport(env.service)

	var states []upload.ProgressState
	orch := upload.NewOrchestrator(transport, upload.WithProgressListener(func(state upload.ProgressState) {
		states = append(states, state)
	}))

	buf := editor.NewBuffer("intro\n")
	buf.SetCursor(editor.Pos{Line: 1, Ch: 0})
	batch := upload.NewBatch(models.CategoryPost, []models.File{
		models.FileFromBytes("one.mp4", mp4Content),
		models.FileFromBytes("evil.exe", pngContent),
		models.FileFromBytes("two.png", pngContent),
	})

	outcome, err := orch.RunBatch(context.Background(), batch, buf)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if outcome.Inserted != 2 || outcome.Failed != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Results[1].OK() || !strings.Contains(outcome.Results[1].Err.Error(), "not accepted") {
		t.Fatalf("expected extension failure for evil.exe, got %+v", outcome.Results[1])
	}

	lines := strings.Split(buf.Text(), "\n")
	if len(lines) != 3 || lines[0] != "intro" {
		t.Fatalf("unexpected document %q", buf.Text())
	}
	if !strings.HasPrefix(lines[1], "![one.mp4]("+testSiteBase+"/post/") || !strings.HasPrefix(lines[2], "![two.png]("+testSiteBase+"/post/") {
		t.Fatalf("unexpected markup lines %q", lines[1:])
	}
	if buf.ReadOnly() {
		t.Fatal("expected buffer writable after commit")
	}
	// The rejected file never reports, so the average settles at 200/3.
	last := states[len(states)-1]
	if last.Status != upload.StatusSuccess || last.Percent != 67 {
		t.Fatalf("expected final success at 67%%, got %+v", last)
	}
}

func TestCountingReaderReportsIncreasingPercent(t *testing.T) {
	var got []int
	r := &countingReader{r: strings.NewReader("abcdefghij"), total: 10, report: func(p int) { got = append(got, p) }}
	buf := make([]byte, 3)
	for {
		if _, err := r.Read(buf); err != nil {
			break
		}
	}
	want := []int{30, 60, 90, 100}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
