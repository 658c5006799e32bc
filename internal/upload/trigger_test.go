package upload

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inkpost/internal/editor"
	"inkpost/internal/models"
)

func TestPolicyValidate(t *testing.T) {
	big := models.FileFromBytes("big.mp4", []byte("0123456789"))
	image := models.FileFromBytes("cover.png", []byte("png"))
	unknown := models.FileFromBytes("notes.zzq", []byte("?"))

	tests := []struct {
		name   string
		policy Policy
		files  []models.File
		reason string
	}{
		{name: "empty", policy: DefaultPolicy(), files: nil, reason: ReasonEmpty},
		{name: "too large", policy: Policy{MaxFileBytes: 4}, files: []models.File{big}, reason: ReasonSize},
		{name: "wrong kind", policy: Policy{AllowedKinds: []string{"video"}}, files: []models.File{big, image}, reason: ReasonKind},
		{name: "unknown kind", policy: Policy{AllowedKinds: []string{"Video"}}, files: []models.File{unknown}, reason: ReasonKind},
		{name: "ok", policy: Policy{MaxFileBytes: 64, AllowedKinds: []string{"Video", "image"}}, files: []models.File{big, image}},
		{name: "no limits", policy: Policy{}, files: []models.File{big, unknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.files)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Reason != tt.reason {
				t.Fatalf("expected reason %s, got %s (%v)", tt.reason, verr.Reason, err)
			}
		})
	}
}

func TestPolicySizeMessageIsHumanReadable(t *testing.T) {
	file := models.File{Name: "huge.mp4", Size: 300 << 20, MediaType: "video/mp4"}
	err := DefaultPolicy().Validate([]models.File{file})
	if err == nil || !strings.Contains(err.Error(), "300 MiB") || !strings.Contains(err.Error(), "100 MiB") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestTriggerAttachHandlesEvents(t *testing.T) {
	buf := editor.NewBuffer("")
	var categories []models.Category
	transport := TransportFunc(func(_ context.Context, req Request, _ ProgressFunc) (string, error) {
		categories = append(categories, req.Category)
		return cdnURL(req.File.Name), nil
	})
	trigger := NewTrigger(NewOrchestrator(transport), Policy{AllowedKinds: []string{"video"}}, "")
	group := trigger.Attach(buf)

	ctx := context.Background()
	if err := buf.Drop(ctx, videos("a.mp4")); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := buf.Paste(ctx, " and ", nil); err != nil {
		t.Fatalf("paste text: %v", err)
	}
	if err := buf.Pick(ctx, videos("b.mp4")); err != nil {
		t.Fatalf("pick: %v", err)
	}
	want := "![a.mp4](" + cdnURL("a.mp4") + ") and ![b.mp4](" + cdnURL("b.mp4") + ")"
	if got := buf.Text(); got != want {
		t.Fatalf("unexpected text\nwant %q\ngot  %q", want, got)
	}
	if len(categories) != 2 || categories[0] != models.CategoryPost {
		t.Fatalf("expected post uploads, got %v", categories)
	}

	err := buf.Drop(ctx, []models.File{models.FileFromBytes("cover.png", []byte("x"))})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonKind {
		t.Fatalf("expected kind rejection, got %v", err)
	}
	if got := buf.Text(); got != want {
		t.Fatalf("rejected drop must not touch the document, got %q", got)
	}

	if err := group.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, kind := range []editor.EventKind{editor.EventDrop, editor.EventPaste, editor.EventPick} {
		if n := buf.SubscriberCount(kind); n != 0 {
			t.Fatalf("expected %s handlers removed, got %d", kind, n)
		}
	}
	if err := buf.Drop(ctx, videos("c.mp4")); err != nil {
		t.Fatalf("drop after close: %v", err)
	}
	if len(categories) != 2 {
		t.Fatal("detached trigger must not upload")
	}
}

func TestTriggerHandlersPassSurfaceExplicitly(t *testing.T) {
	trigger := NewTrigger(NewOrchestrator(okTransport()), DefaultPolicy(), models.CategoryBranding)
	first := editor.NewBuffer("1:")
	second := editor.NewBuffer("2:")
	first.SetCursor(editor.Pos{Ch: 2})
	second.SetCursor(editor.Pos{Ch: 2})

	if _, err := trigger.HandlePick(context.Background(), second, videos("logo.mp4")); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if first.Text() != "1:" {
		t.Fatalf("unrelated buffer changed: %q", first.Text())
	}
	if !strings.HasPrefix(second.Text(), "2:![logo.mp4](") {
		t.Fatalf("unexpected text %q", second.Text())
	}
	if _, err := trigger.HandleDrop(context.Background(), nil, videos("a.mp4")); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("expected ErrNoSurface, got %v", err)
	}
}
