package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/stackgen/internal/datapath"
)

// LoadOverlay reads a values overlay file.
func LoadOverlay(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values overlay: %w", err)
	}

	var overlay map[string]any
	if err := yaml.Unmarshal(content, &overlay); err != nil {
		return nil, fmt.Errorf("parse values overlay: %w", err)
	}
	if overlay == nil {
		return make(map[string]any), nil
	}

	return stringKeys(overlay).(map[string]any), nil
}

// ApplyOverlay deep merges overlay into every environment. Stack names
// added by the overlay are validated like loaded ones.
func (r *Registry) ApplyOverlay(overlay map[string]any) error {
	if len(overlay) == 0 {
		return nil
	}

	for _, env := range r.envs {
		base, ok := env.Config.Data().(map[string]any)
		if !ok {
			return fmt.Errorf("environment %s: unexpected document type %T", env.Name, env.Config.Data())
		}

		env.Config = datapath.New(DeepMerge(base, overlay))
		if _, err := env.Stacks(); err != nil {
			return fmt.Errorf("apply overlay: %w", err)
		}
	}

	return nil
}

// DeepMerge recursively merges overlay into base and returns a new map.
// Mappings merge key by key; any other overlay value replaces the base
// value, sequences included. Neither input is modified.
func DeepMerge(base, overlay map[string]any) map[string]any {
	result := copyMap(base)

	for key, overlayValue := range overlay {
		baseValue, exists := result[key]
		if !exists {
			result[key] = deepCopy(overlayValue)
			continue
		}

		baseMap, baseIsMap := baseValue.(map[string]any)
		overlayMap, overlayIsMap := overlayValue.(map[string]any)
		if baseIsMap && overlayIsMap {
			result[key] = DeepMerge(baseMap, overlayMap)
			continue
		}

		result[key] = deepCopy(overlayValue)
	}

	return result
}

// copyMap creates a deep copy of a map.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopy(v)
	}
	return result
}

// deepCopy creates a deep copy of a value.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = deepCopy(item)
		}
		return result
	default:
		return v
	}
}
