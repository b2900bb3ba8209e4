package generate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/cameronsjo/stackgen/internal/fileutil"
)

// Sink receives generated output.
type Sink interface {
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error

	// WriteFile stores a generated manifest at path.
	WriteFile(path string, data []byte) error

	// CopyFile copies a static template unchanged from src to dst.
	CopyFile(src, dst string) error
}

// DirSink writes to the filesystem. Files are replaced atomically.
type DirSink struct{}

func (DirSink) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (DirSink) WriteFile(path string, data []byte) error {
	return fileutil.WriteFile(path, data, 0644)
}

func (DirSink) CopyFile(src, dst string) error {
	return fileutil.CopyFile(src, dst)
}

// PrintSink prints every file to W instead of writing it, each document
// headed by a "# <path>" comment.
type PrintSink struct {
	W io.Writer
}

func (p *PrintSink) MkdirAll(string) error { return nil }

func (p *PrintSink) WriteFile(path string, data []byte) error {
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	_, err := fmt.Fprintf(p.W, "---\n# %s\n%s", path, data)
	return err
}

func (p *PrintSink) CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return p.WriteFile(dst, data)
}

var (
	diffAdd    = color.New(color.FgGreen)
	diffRemove = color.New(color.FgRed)
	diffHunk   = color.New(color.FgCyan)
)

// DiffSink prints a unified diff between what is on disk and what would be
// written. It never touches the filesystem.
type DiffSink struct {
	W io.Writer

	changed []string
}

// NewDiffSink returns a DiffSink printing to w.
func NewDiffSink(w io.Writer) *DiffSink {
	return &DiffSink{W: w}
}

// Changed lists the paths whose content would change, in call order.
func (d *DiffSink) Changed() []string {
	return d.changed
}

func (d *DiffSink) MkdirAll(string) error { return nil }

func (d *DiffSink) WriteFile(path string, data []byte) error {
	current, err := os.ReadFile(path)
	fromFile := path
	if errors.Is(err, fs.ErrNotExist) {
		fromFile = "/dev/null"
	} else if err != nil {
		return err
	}

	if bytes.Equal(current, data) {
		return nil
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(data)),
		FromFile: fromFile,
		ToFile:   path,
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("diff %s: %w", path, err)
	}

	d.changed = append(d.changed, path)
	return d.print(text)
}

func (d *DiffSink) CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return d.WriteFile(dst, data)
}

func (d *DiffSink) print(text string) error {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		var err error
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			_, err = fmt.Fprintln(d.W, line)
		case strings.HasPrefix(line, "+"):
			_, err = diffAdd.Fprintln(d.W, line)
		case strings.HasPrefix(line, "-"):
			_, err = diffRemove.Fprintln(d.W, line)
		case strings.HasPrefix(line, "@@"):
			_, err = diffHunk.Fprintln(d.W, line)
		default:
			_, err = fmt.Fprintln(d.W, line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
