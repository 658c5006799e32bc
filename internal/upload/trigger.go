package upload

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"inkpost/internal/editor"
	"inkpost/internal/models"
)

// DefaultMaxFileBytes bounds a single file accepted from the editor.
const DefaultMaxFileBytes int64 = 100 << 20

// Policy decides which files an insertion action accepts.
type Policy struct {
	// MaxFileBytes rejects larger files. Zero or less disables the check.
	MaxFileBytes int64
	// AllowedKinds lists top-level media types ("video", "image"). Empty
	// accepts any kind.
	AllowedKinds []string
}

// DefaultPolicy accepts files of any kind up to DefaultMaxFileBytes.
func DefaultPolicy() Policy {
	return Policy{MaxFileBytes: DefaultMaxFileBytes}
}

// ValidationError explains why an insertion action was refused.
type ValidationError struct {
	Reason string
	File   string
	Detail string
}

const (
	ReasonEmpty = "empty"
	ReasonKind  = "kind"
	ReasonSize  = "size"
)

func (e *ValidationError) Error() string {
	if e.File == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.File, e.Detail)
}

// Validate checks every file. No file is accepted unless all of them are.
func (p Policy) Validate(files []models.File) error {
	if len(files) == 0 {
		return &ValidationError{Reason: ReasonEmpty, Detail: "no files selected"}
	}
	for _, file := range files {
		if p.MaxFileBytes > 0 && file.Size > p.MaxFileBytes {
			return &ValidationError{
				Reason: ReasonSize,
				File:   file.Name,
				Detail: fmt.Sprintf("file is %s, limit is %s",
					humanize.IBytes(uint64(file.Size)), humanize.IBytes(uint64(p.MaxFileBytes))),
			}
		}
		if !p.allowsKind(file.Kind()) {
			kind := file.Kind()
			if kind == "" {
				kind = "unknown"
			}
			return &ValidationError{
				Reason: ReasonKind,
				File:   file.Name,
				Detail: fmt.Sprintf("%s files are not accepted (allowed: %s)", kind, strings.Join(p.AllowedKinds, ", ")),
			}
		}
	}
	return nil
}

func (p Policy) allowsKind(kind string) bool {
	if len(p.AllowedKinds) == 0 {
		return true
	}
	return slices.ContainsFunc(p.AllowedKinds, func(allowed string) bool {
		return strings.EqualFold(strings.TrimSpace(allowed), kind)
	})
}

// Trigger turns editor drop, paste and pick actions into upload batches.
type Trigger struct {
	orchestrator *Orchestrator
	policy       Policy
	category     models.Category
}

// NewTrigger wires editor events to orchestrator. Files are uploaded into
// category; an empty category means post.
func NewTrigger(orchestrator *Orchestrator, policy Policy, category models.Category) *Trigger {
	if category == "" {
		category = models.CategoryPost
	}
	return &Trigger{orchestrator: orchestrator, policy: policy, category: category}
}

// HandleDrop uploads files dropped onto buffer.
func (t *Trigger) HandleDrop(ctx context.Context, buffer Surface, files []models.File) (Outcome, error) {
	return t.run(ctx, buffer, files)
}

// HandlePaste uploads pasted files.
func (t *Trigger) HandlePaste(ctx context.Context, buffer Surface, files []models.File) (Outcome, error) {
	return t.run(ctx, buffer, files)
}

// HandlePick uploads files chosen through the file picker.
func (t *Trigger) HandlePick(ctx context.Context, buffer Surface, files []models.File) (Outcome, error) {
	return t.run(ctx, buffer, files)
}

func (t *Trigger) run(ctx context.Context, surface Surface, files []models.File) (Outcome, error) {
	if surface == nil {
		return Outcome{}, ErrNoSurface
	}
	if err := t.policy.Validate(files); err != nil {
		return Outcome{}, err
	}
	return t.orchestrator.RunBatch(ctx, NewBatch(t.category, files), surface)
}

// Attach subscribes the trigger to buffer's file events. Closing the
// returned group detaches every handler.
func (t *Trigger) Attach(buffer *editor.Buffer) *editor.SubscriptionGroup {
	group := &editor.SubscriptionGroup{}
	group.Add(buffer.Subscribe(editor.EventDrop, t.eventHandler(t.HandleDrop)))
	group.Add(buffer.Subscribe(editor.EventPaste, t.eventHandler(t.HandlePaste)))
	group.Add(buffer.Subscribe(editor.EventPick, t.eventHandler(t.HandlePick)))
	return group
}

type handleFunc func(ctx context.Context, buffer Surface, files []models.File) (Outcome, error)

func (t *Trigger) eventHandler(handle handleFunc) editor.Handler {
	return func(ctx context.Context, b *editor.Buffer, ev editor.Event) (bool, error) {
		// Text-only pastes fall through to the buffer.
		if ev.Kind == editor.EventPaste && len(ev.Files) == 0 {
			return false, nil
		}
		if _, err := handle(ctx, b, ev.Files); err != nil {
			return true, err
		}
		return true, nil
	}
}
