package editor

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrReadOnly is returned for user edits while the buffer is read-only.
var ErrReadOnly = errors.New("editor is read-only")

// Buffer is an in-memory markdown editing surface: a line/column text
// buffer with a selection, a read-only flag, a focus flag and event
// subscriptions for dropped, pasted and picked files.
//
// Programmatic edits (ReplaceSelection, ReplaceRange) are always applied;
// only user edits (Input and the file events) honour the read-only flag.
type Buffer struct {
	mu       sync.Mutex
	lines    []string
	anchor   Pos
	head     Pos
	readOnly bool
	focused  bool

	subs   []*Subscription
	nextID uint64
}

// NewBuffer creates a buffer holding text with the cursor at the start.
func NewBuffer(text string) *Buffer {
	return &Buffer{lines: strings.Split(text, "\n")}
}

// Text returns the full buffer content.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// CursorPosition returns the start of the current selection, which is the
// cursor itself when nothing is selected. Text passed to ReplaceSelection
// is inserted here.
func (b *Buffer) CursorPosition() Pos {
	b.mu.Lock()
	defer b.mu.Unlock()
	return minPos(b.anchor, b.head)
}

// Cursor returns the selection head.
func (b *Buffer) Cursor() Pos {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head
}

// SetCursor collapses the selection to p, clipped to the document.
func (b *Buffer) SetCursor(p Pos) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p = b.clip(p)
	b.anchor, b.head = p, p
}

// Select sets the selection from anchor to head.
func (b *Buffer) Select(anchor, head Pos) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.anchor, b.head = b.clip(anchor), b.clip(head)
}

// GetSelection returns the selected text.
func (b *Buffer) GetSelection() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textRange(minPos(b.anchor, b.head), maxPos(b.anchor, b.head))
}

// ReplaceSelection replaces the selection with text and leaves the cursor
// after the inserted text.
func (b *Buffer) ReplaceSelection(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	end := b.replace(text, minPos(b.anchor, b.head), maxPos(b.anchor, b.head))
	b.anchor, b.head = end, end
}

// ReplaceRange replaces the text between from and to. The selection is
// mapped through the edit.
func (b *Buffer) ReplaceRange(text string, from, to Pos) {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, to = b.clip(from), b.clip(to)
	if to.Compare(from) < 0 {
		from, to = to, from
	}
	end := b.replace(text, from, to)
	b.anchor = mapPos(b.anchor, from, to, end)
	b.head = mapPos(b.head, from, to, end)
}

// SetReadOnly toggles whether user edits are accepted.
func (b *Buffer) SetReadOnly(readOnly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = readOnly
}

// ReadOnly reports the read-only flag.
func (b *Buffer) ReadOnly() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readOnly
}

func (b *Buffer) Focus() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.focused = true
}

func (b *Buffer) Blur() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.focused = false
}

func (b *Buffer) Focused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.focused
}

// Input applies user typing at the selection.
func (b *Buffer) Input(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readOnly {
		return ErrReadOnly
	}
	end := b.replace(text, minPos(b.anchor, b.head), maxPos(b.anchor, b.head))
	b.anchor, b.head = end, end
	return nil
}

// clip must be called with mu held.
func (b *Buffer) clip(p Pos) Pos {
	if p.Line < 0 {
		return Pos{}
	}
	if p.Line >= len(b.lines) {
		last := len(b.lines) - 1
		return Pos{Line: last, Ch: utf8.RuneCountInString(b.lines[last])}
	}
	if p.Ch < 0 {
		p.Ch = 0
	}
	if n := utf8.RuneCountInString(b.lines[p.Line]); p.Ch > n {
		p.Ch = n
	}
	return p
}

func (b *Buffer) textRange(from, to Pos) string {
	if from.Line == to.Line {
		line := []rune(b.lines[from.Line])
		return string(line[from.Ch:to.Ch])
	}
	parts := make([]string, 0, to.Line-from.Line+1)
	parts = append(parts, string([]rune(b.lines[from.Line])[from.Ch:]))
	parts = append(parts, b.lines[from.Line+1:to.Line]...)
	parts = append(parts, string([]rune(b.lines[to.Line])[:to.Ch]))
	return strings.Join(parts, "\n")
}

// replace swaps [from, to) for text and returns the end of the inserted
// text. from and to must be clipped and ordered.
func (b *Buffer) replace(text string, from, to Pos) Pos {
	prefix := string([]rune(b.lines[from.Line])[:from.Ch])
	suffix := string([]rune(b.lines[to.Line])[to.Ch:])
	inserted := strings.Split(text, "\n")

	last := len(inserted) - 1
	end := Pos{Line: from.Line + last, Ch: utf8.RuneCountInString(inserted[last])}
	if last == 0 {
		end.Ch += utf8.RuneCountInString(prefix)
	}

	replacement := make([]string, len(inserted))
	copy(replacement, inserted)
	replacement[0] = prefix + replacement[0]
	replacement[last] = replacement[last] + suffix

	lines := make([]string, 0, len(b.lines)-(to.Line-from.Line)+last)
	lines = append(lines, b.lines[:from.Line]...)
	lines = append(lines, replacement...)
	lines = append(lines, b.lines[to.Line+1:]...)
	b.lines = lines
	return end
}

// mapPos moves p through the replacement of [from, to) by text ending at end.
func mapPos(p, from, to, end Pos) Pos {
	if p.Compare(from) <= 0 {
		return p
	}
	if p.Compare(to) < 0 {
		return end
	}
	if p.Line == to.Line {
		return Pos{Line: end.Line, Ch: end.Ch + (p.Ch - to.Ch)}
	}
	return Pos{Line: p.Line + (end.Line - to.Line), Ch: p.Ch}
}
