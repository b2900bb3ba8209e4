// Package datapath reads and patches nested data through dotted path
// expressions such as "spec.template.spec.containers.0.resources".
//
// Data is the shape produced by YAML decoding: mappings (map[string]any or
// map[any]any), sequences ([]any) and scalars. A path is split on a
// delimiter and every segment is interpreted exactly once:
//
//   - "\"80\"" (wrapped in double quotes) is the literal mapping key 80
//   - "0", "-1", "+2" are sequence indexes
//   - anything else is a mapping key
//
// Writes never create intermediate containers.
package datapath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultDelimiter separates path segments.
const DefaultDelimiter = "."

var (
	// ErrNotFound indicates a mapping key that does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrIndexOutOfRange indicates a sequence index outside the sequence bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotIndexable indicates a segment applied to a value that cannot be
	// indexed by it: a scalar, nil, a key against a sequence or an index
	// against a mapping.
	ErrNotIndexable = errors.New("value is not indexable")

	// ErrNilMapping indicates a write into a nil map. Reads treat a nil map
	// as empty, but it cannot hold a new key.
	ErrNilMapping = errors.New("mapping is nil")
)

// PathError records the failing operation, path and segment.
type PathError struct {
	Op      string
	Path    string
	Segment Segment
	Err     error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: segment %s: %v", e.Op, e.Path, e.Segment, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Segment is one parsed path component.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return strconv.Quote(s.Key)
}

var indexPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)

// Parse splits expr on delimiter. An empty expression yields a single
// empty-key segment. A segment is quoted only if it both starts and ends
// with a double quote, so a lone `"` is the literal key `"` and `""` is
// the empty key.
func Parse(expr, delimiter string) []Segment {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	parts := strings.Split(expr, delimiter)
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		if len(part) >= 2 && strings.HasPrefix(part, `"`) && strings.HasSuffix(part, `"`) {
			segments = append(segments, Segment{Key: part[1 : len(part)-1]})
			continue
		}
		if indexPattern.MatchString(part) {
			if n, err := strconv.Atoi(part); err == nil {
				segments = append(segments, Segment{Index: n, IsIndex: true})
				continue
			}
		}
		segments = append(segments, Segment{Key: part})
	}
	return segments
}

// Key joins literal mapping keys into a path expression, quoting any part
// that would otherwise parse as an index.
func Key(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		if indexPattern.MatchString(p) {
			p = `"` + p + `"`
		}
		quoted[i] = p
	}
	return strings.Join(quoted, DefaultDelimiter)
}

// DataPath wraps a nested value for path based access. Set and Delete
// mutate the wrapped value in place.
type DataPath struct {
	data      any
	delimiter string
}

// New wraps data using the default delimiter.
func New(data any) *DataPath {
	return &DataPath{data: data, delimiter: DefaultDelimiter}
}

// NewWithDelimiter wraps data using a custom segment delimiter.
func NewWithDelimiter(data any, delimiter string) *DataPath {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &DataPath{data: data, delimiter: delimiter}
}

// Data returns the wrapped value.
func (d *DataPath) Data() any { return d.data }

func (d *DataPath) String() string {
	return fmt.Sprintf("DataPath(%v)", d.data)
}

// Get returns the value at path.
func (d *DataPath) Get(path string) (any, error) {
	ref, err := d.resolve("get", path)
	if err != nil {
		return nil, err
	}
	return ref.get()
}

// Set assigns value at path. The container holding the last segment must
// already exist.
func (d *DataPath) Set(path string, value any) error {
	ref, err := d.resolve("set", path)
	if err != nil {
		return err
	}
	return ref.set(value)
}

// Delete removes the last segment of path from its container.
func (d *DataPath) Delete(path string) error {
	ref, err := d.resolve("delete", path)
	if err != nil {
		return err
	}
	return ref.remove()
}

// GetOrDefault behaves like Get but returns def when the key or index is
// missing. ErrNotIndexable is still returned to the caller.
func (d *DataPath) GetOrDefault(path string, def any) (any, error) {
	v, err := d.Get(path)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrIndexOutOfRange) {
		return def, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Contains reports whether Get(path) succeeds. Any failure, structural
// mismatches included, counts as absent.
func (d *DataPath) Contains(path string) bool {
	_, err := d.Get(path)
	return err == nil
}
