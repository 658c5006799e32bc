package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"inkpost/internal/editor"
)

// document is a markdown file loaded into an editor buffer.
type document struct {
	path   string
	perm   os.FileMode
	buffer *editor.Buffer
}

func loadDocument(path string) (*document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not valid UTF-8 text", path)
	}
	return &document{path: path, perm: info.Mode().Perm(), buffer: editor.NewBuffer(string(data))}, nil
}

// placeCursor moves the cursor to at ("line:col", one-based). Empty or
// "end" means the end of the document.
func (d *document) placeCursor(at string) (editor.Pos, error) {
	at = strings.TrimSpace(at)
	if at == "" || strings.EqualFold(at, "end") {
		pos := endOfText(d.buffer.Text())
		d.buffer.SetCursor(pos)
		return pos, nil
	}
	pos, err := editor.ParsePos(at)
	if err != nil {
		return editor.Pos{}, err
	}
	d.buffer.SetCursor(pos)
	return d.buffer.CursorPosition(), nil
}

// save replaces the file atomically with the buffer content.
func (d *document) save() error {
	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(d.buffer.Text()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(d.perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, d.path)
}

func endOfText(text string) editor.Pos {
	lines := strings.Split(text, "\n")
	last := len(lines) - 1
	return editor.Pos{Line: last, Ch: utf8.RuneCountInString(lines[last])}
}
