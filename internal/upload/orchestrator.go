package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"inkpost/internal/editor"
	"inkpost/internal/models"
)

var (
	ErrEmptyBatch  = errors.New("upload batch is empty")
	ErrNoSurface   = errors.New("no editor surface attached")
	ErrNoTransport = errors.New("no upload transport configured")
	ErrEmptyURL    = errors.New("link url is required")
)

// Surface is the editor API the orchestrator drives.
type Surface interface {
	CursorPosition() editor.Pos
	ReplaceSelection(text string)
	ReplaceRange(text string, from, to editor.Pos)
	SetReadOnly(readOnly bool)
	Focus()
	GetSelection() string
}

// ProgressFunc receives a file's upload percentage in [0,100].
type ProgressFunc func(percent int)

// Transport uploads one file and returns the URL it is served from.
// progress may be called zero or more times before Upload returns.
type Transport interface {
	Upload(ctx context.Context, req Request, progress ProgressFunc) (string, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request, progress ProgressFunc) (string, error)

func (f TransportFunc) Upload(ctx context.Context, req Request, progress ProgressFunc) (string, error) {
	return f(ctx, req, progress)
}

// Request is one file bound for one category.
type Request struct {
	File     models.File
	Category models.Category
}

// Batch is the ordered set of files submitted by one insertion action.
type Batch []Request

// NewBatch builds a batch that uploads every file into category.
func NewBatch(category models.Category, files []models.File) Batch {
	batch := make(Batch, 0, len(files))
	for _, file := range files {
		batch = append(batch, Request{File: file, Category: category})
	}
	return batch
}

// Result is the settled outcome of one request.
type Result struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Err  error  `json:"-"`
}

func (r Result) OK() bool {
	return r.Err == nil && r.URL != ""
}

// Outcome summarizes a settled batch. Results follow batch order.
type Outcome struct {
	Results  []Result `json:"results"`
	Markup   string   `json:"markup"`
	Inserted int      `json:"inserted"`
	Failed   int      `json:"failed"`
}

// AllFailed reports whether no file in the batch made it into the document.
func (o Outcome) AllFailed() bool {
	return len(o.Results) > 0 && o.Inserted == 0
}

// Err joins the per-file errors, or returns nil.
func (o Outcome) Err() error {
	var errs []error
	for _, r := range o.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// Orchestrator turns a batch of files into editor markup. It reserves a
// placeholder at the cursor, uploads every file concurrently, and replaces
// the placeholder once with the markup for the files that succeeded.
type Orchestrator struct {
	transport Transport
	label     string
	style     MarkupStyle
	policy    ProgressPolicy
	listener  ProgressListener
	logger    *slog.Logger
	progress  *Progress
	runMu     sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPlaceholderLabel sets the text shown inside the loading placeholder.
func WithPlaceholderLabel(label string) Option {
	return func(o *Orchestrator) { o.label = label }
}

func WithMarkupStyle(style MarkupStyle) Option {
	return func(o *Orchestrator) { o.style = style }
}

func WithProgressPolicy(policy ProgressPolicy) Option {
	return func(o *Orchestrator) { o.policy = policy }
}

// WithProgressListener observes every aggregate progress change. The
// listener runs synchronously and must not call back into the orchestrator.
func WithProgressListener(listener ProgressListener) Option {
	return func(o *Orchestrator) { o.listener = listener }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// NewOrchestrator creates an orchestrator that uploads through transport.
func NewOrchestrator(transport Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport: transport,
		label:     DefaultPlaceholderLabel,
		style:     MarkupEmbed,
		policy:    ProgressAverage,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.progress = newProgress(o.policy, o.listener)
	return o
}

// Progress returns the aggregate progress of the current or last batch.
func (o *Orchestrator) Progress() ProgressState {
	return o.progress.State()
}

// RunBatch uploads batch and inserts the resulting markup into surface.
//
// Runs are serialized: a second call waits until the first has committed,
// so at most one placeholder is open at a time. Individual upload failures
// never abort the batch; they are reported in the Outcome. An error is
// returned only when the batch cannot start, and then surface is untouched.
func (o *Orchestrator) RunBatch(ctx context.Context, batch Batch, surface Surface) (Outcome, error) {
	if len(batch) == 0 {
		return Outcome{}, ErrEmptyBatch
	}
	if surface == nil {
		return Outcome{}, ErrNoSurface
	}
	if o.transport == nil {
		return Outcome{}, ErrNoTransport
	}

	o.runMu.Lock()
	defer o.runMu.Unlock()

	// Reserve.
	placeholder := Placeholder(o.label)
	start := surface.CursorPosition()
	end := start.Offset(utf8.RuneCountInString(placeholder))
	surface.ReplaceSelection(placeholder)
	surface.SetReadOnly(true)

	results := o.dispatch(ctx, batch)
	outcome := o.reduce(results)

	// Commit.
	surface.ReplaceRange(outcome.Markup, start, end)
	surface.SetReadOnly(false)
	surface.Focus()
	o.progress.settle(outcome.Inserted)

	if outcome.AllFailed() {
		o.log().Warn("upload batch failed", "files", len(batch), "error", outcome.Err())
	} else if outcome.Failed > 0 {
		o.log().Debug("upload batch partially failed", "files", len(batch), "failed", outcome.Failed, "error", outcome.Err())
	}
	return outcome, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, batch Batch) []Result {
	o.progress.reset(len(batch))
	results := make([]Result, len(batch))

	var g errgroup.Group
	for i, req := range batch {
		g.Go(func() error {
			url, err := o.transport.Upload(ctx, req, func(percent int) {
				o.progress.report(i, percent)
			})
			if err == nil && strings.TrimSpace(url) == "" {
				err = errors.New("transport returned no url")
			}
			if err != nil {
				results[i] = Result{Name: req.File.Name, Err: fmt.Errorf("upload %s: %w", req.File.Name, err)}
				return nil
			}
			o.progress.report(i, 100)
			results[i] = Result{Name: req.File.Name, URL: url}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) reduce(results []Result) Outcome {
	outcome := Outcome{Results: results}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if !r.OK() {
			outcome.Failed++
			continue
		}
		lines = append(lines, o.style.Line(r.Name, r.URL))
		outcome.Inserted++
	}
	outcome.Markup = strings.Join(lines, "\n")
	return outcome
}

func (o *Orchestrator) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slog.Default()
}

// InsertLink writes a single markup line for an already hosted file at the
// selection. An empty name falls back to the selected text.
func InsertLink(surface Surface, name, url string, style MarkupStyle) error {
	if surface == nil {
		return ErrNoSurface
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrEmptyURL
	}
	if strings.TrimSpace(name) == "" {
		name = surface.GetSelection()
	}
	surface.ReplaceSelection(style.Line(strings.TrimSpace(name), url))
	surface.Focus()
	return nil
}
