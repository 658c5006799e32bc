package editor

import (
	"fmt"
	"strconv"
	"strings"
)

// Pos is a zero-based (line, column) location. Columns count runes.
type Pos struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

// Compare orders positions by line, then column.
func (p Pos) Compare(other Pos) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Ch < other.Ch:
		return -1
	case p.Ch > other.Ch:
		return 1
	default:
		return 0
	}
}

// Offset returns the position n columns further along the same line.
func (p Pos) Offset(n int) Pos {
	return Pos{Line: p.Line, Ch: p.Ch + n}
}

// String renders the position one-based, the way editors show it.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Ch+1)
}

// ParsePos parses a one-based "line:col" or "line" string.
func ParsePos(raw string) (Pos, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Pos{}, fmt.Errorf("position is required")
	}
	lineRaw, colRaw, hasCol := strings.Cut(raw, ":")
	line, err := strconv.Atoi(strings.TrimSpace(lineRaw))
	if err != nil || line < 1 {
		return Pos{}, fmt.Errorf("invalid position %q: line must be a positive integer", raw)
	}
	col := 1
	if hasCol {
		col, err = strconv.Atoi(strings.TrimSpace(colRaw))
		if err != nil || col < 1 {
			return Pos{}, fmt.Errorf("invalid position %q: column must be a positive integer", raw)
		}
	}
	return Pos{Line: line - 1, Ch: col - 1}, nil
}

func minPos(a, b Pos) Pos {
	if a.Compare(b) <= 0 {
		return a
	}
	return b
}

func maxPos(a, b Pos) Pos {
	if a.Compare(b) >= 0 {
		return a
	}
	return b
}
