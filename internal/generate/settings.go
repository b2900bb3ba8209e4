package generate

import (
	"fmt"
	"math"

	"github.com/cameronsjo/stackgen/internal/datapath"
	"github.com/cameronsjo/stackgen/internal/registry"
)

// settings reads one component entry (stacks.<stack>.<component>) and falls
// back to the component defaults.
type settings struct {
	prefix   string
	defaults map[string]any
	raw      map[string]any
	data     *datapath.DataPath
}

func loadSettings(reg *datapath.DataPath, stack string, c Component) (*settings, error) {
	prefix := datapath.Key(registry.StacksKey, stack, c.Name)

	entry, err := reg.Get(prefix)
	if err != nil {
		return nil, err
	}

	// A bare "grafana:" enables the component with its defaults.
	if entry == nil {
		entry = map[string]any{}
	}
	raw, _ := entry.(map[string]any)

	return &settings{
		prefix:   prefix,
		defaults: c.Defaults,
		raw:      raw,
		data:     datapath.New(entry),
	}, nil
}

func (s *settings) get(key string) (any, error) {
	var (
		v   any
		err error
	)
	if def, ok := s.defaults[key]; ok {
		v, err = s.data.GetOrDefault(key, def)
	} else {
		v, err = s.data.Get(key)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.prefix, err)
	}
	return v, nil
}

func (s *settings) string(key string) (string, error) {
	v, err := s.get(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s.%s: expected a string, got %T", s.prefix, key, v)
	}
	return str, nil
}

func (s *settings) int32(key string) (int32, error) {
	v, err := s.get(key)
	if err != nil {
		return 0, err
	}
	n, err := toInt32(v)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %w", s.prefix, key, err)
	}
	return n, nil
}

func toInt32(v any) (int32, error) {
	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int32:
		n = int64(val)
	case int64:
		n = val
	case uint64:
		if val > math.MaxInt32 {
			return 0, fmt.Errorf("%d is out of range", val)
		}
		n = int64(val)
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("expected an integer, got %v", val)
		}
		if val > math.MaxInt32 || val < math.MinInt32 {
			return 0, fmt.Errorf("%v is out of range", val)
		}
		n = int64(val)
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}

	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%d is out of range", n)
	}
	return int32(n), nil
}
