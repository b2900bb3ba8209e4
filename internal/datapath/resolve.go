package datapath

// reference is a resolved (container, last segment) pair. store replaces
// the container inside its own parent, which sequence deletion needs
// because removing an element yields a new slice header.
type reference struct {
	op        string
	path      string
	container any
	last      Segment
	store     func(any)
}

func (d *DataPath) resolve(op, path string) (*reference, error) {
	segments := Parse(path, d.delimiter)

	current := d.data
	store := func(v any) { d.data = v }

	for _, seg := range segments[:len(segments)-1] {
		next, err := index(current, seg)
		if err != nil {
			return nil, &PathError{Op: op, Path: path, Segment: seg, Err: err}
		}
		parent, parentSeg := current, seg
		store = func(v any) { _ = assign(parent, parentSeg, v) }
		current = next
	}

	return &reference{
		op:        op,
		path:      path,
		container: current,
		last:      segments[len(segments)-1],
		store:     store,
	}, nil
}

func (r *reference) fail(err error) error {
	return &PathError{Op: r.op, Path: r.path, Segment: r.last, Err: err}
}

func (r *reference) get() (any, error) {
	v, err := index(r.container, r.last)
	if err != nil {
		return nil, r.fail(err)
	}
	return v, nil
}

func (r *reference) set(value any) error {
	if err := assign(r.container, r.last, value); err != nil {
		return r.fail(err)
	}
	return nil
}

func (r *reference) remove() error {
	switch c := r.container.(type) {
	case map[string]any:
		if r.last.IsIndex {
			return r.fail(ErrNotIndexable)
		}
		if _, ok := c[r.last.Key]; !ok {
			return r.fail(ErrNotFound)
		}
		delete(c, r.last.Key)
	case map[any]any:
		if r.last.IsIndex {
			return r.fail(ErrNotIndexable)
		}
		if _, ok := c[r.last.Key]; !ok {
			return r.fail(ErrNotFound)
		}
		delete(c, r.last.Key)
	case []any:
		if !r.last.IsIndex {
			return r.fail(ErrNotIndexable)
		}
		i, ok := position(r.last.Index, len(c))
		if !ok {
			return r.fail(ErrIndexOutOfRange)
		}
		out := make([]any, 0, len(c)-1)
		out = append(out, c[:i]...)
		out = append(out, c[i+1:]...)
		r.store(out)
	default:
		return r.fail(ErrNotIndexable)
	}
	return nil
}

func index(container any, seg Segment) (any, error) {
	switch c := container.(type) {
	case map[string]any:
		if seg.IsIndex {
			return nil, ErrNotIndexable
		}
		v, ok := c[seg.Key]
		if !ok {
			return nil, ErrNotFound
		}
		return v, nil
	case map[any]any:
		if seg.IsIndex {
			return nil, ErrNotIndexable
		}
		v, ok := c[seg.Key]
		if !ok {
			return nil, ErrNotFound
		}
		return v, nil
	case []any:
		if !seg.IsIndex {
			return nil, ErrNotIndexable
		}
		i, ok := position(seg.Index, len(c))
		if !ok {
			return nil, ErrIndexOutOfRange
		}
		return c[i], nil
	default:
		return nil, ErrNotIndexable
	}
}

func assign(container any, seg Segment, value any) error {
	switch c := container.(type) {
	case map[string]any:
		if seg.IsIndex {
			return ErrNotIndexable
		}
		if c == nil {
			return ErrNilMapping
		}
		c[seg.Key] = value
	case map[any]any:
		if seg.IsIndex {
			return ErrNotIndexable
		}
		if c == nil {
			return ErrNilMapping
		}
		c[seg.Key] = value
	case []any:
		if !seg.IsIndex {
			return ErrNotIndexable
		}
		i, ok := position(seg.Index, len(c))
		if !ok {
			return ErrIndexOutOfRange
		}
		c[i] = value
	default:
		return ErrNotIndexable
	}
	return nil
}

// position maps a possibly negative index onto [0, length).
func position(i, length int) (int, bool) {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return i, true
}
