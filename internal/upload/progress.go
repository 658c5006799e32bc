package upload

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Status is the lifecycle state of the active batch.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// ProgressPolicy decides how per-file percentages combine into one figure.
type ProgressPolicy string

const (
	// ProgressAverage reports the mean of every file's percentage.
	ProgressAverage ProgressPolicy = "average"
	// ProgressLast reports whichever file reported most recently.
	ProgressLast ProgressPolicy = "last"
)

func ParseProgressPolicy(raw string) (ProgressPolicy, error) {
	switch ProgressPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ProgressAverage:
		return ProgressAverage, nil
	case ProgressLast:
		return ProgressLast, nil
	default:
		return "", fmt.Errorf("invalid progress policy %q (expected average or last)", raw)
	}
}

// ProgressState is the observable aggregate progress of a batch.
type ProgressState struct {
	Percent int    `json:"percent"`
	Status  Status `json:"status"`
}

// ProgressListener receives every aggregate change.
type ProgressListener func(ProgressState)

// Progress aggregates per-file progress for one batch at a time.
type Progress struct {
	mu       sync.Mutex
	policy   ProgressPolicy
	files    []int
	state    ProgressState
	listener ProgressListener
}

func newProgress(policy ProgressPolicy, listener ProgressListener) *Progress {
	if policy == "" {
		policy = ProgressAverage
	}
	return &Progress{policy: policy, listener: listener, state: ProgressState{Status: StatusUploading}}
}

// State returns a snapshot of the aggregate.
func (p *Progress) State() ProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// reset starts tracking a new batch of n files.
func (p *Progress) reset(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = make([]int, n)
	p.state = ProgressState{Percent: 0, Status: StatusUploading}
	p.notify()
}

// report records percent for file i. Values are clamped to [0,100] and
// a file never moves backwards.
func (p *Progress) report(i, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.files) {
		return
	}
	percent = clampPercent(percent)
	if percent < p.files[i] {
		percent = p.files[i]
	}
	p.files[i] = percent

	switch p.policy {
	case ProgressLast:
		p.state.Percent = percent
	default:
		p.state.Percent = p.average()
	}
	p.notify()
}

// settle marks the batch finished.
func (p *Progress) settle(succeeded int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if succeeded > 0 {
		p.state.Status = StatusSuccess
	} else {
		p.state.Status = StatusError
	}
	p.notify()
}

// average must be called with mu held.
func (p *Progress) average() int {
	if len(p.files) == 0 {
		return 0
	}
	total := 0
	for _, v := range p.files {
		total += v
	}
	return int(math.Round(float64(total) / float64(len(p.files))))
}

// notify runs the listener with mu held so listeners observe changes in
// order; a listener must not call back into Progress.
func (p *Progress) notify() {
	if p.listener != nil {
		p.listener(p.state)
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
