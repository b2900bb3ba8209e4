// Package registry loads the stack registry: per-environment YAML
// documents that declare named stacks and, per stack, the components that
// are enabled along with their sizing.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/stackgen/internal/datapath"
)

// StacksKey is the top-level key holding the stack declarations of an
// environment.
const StacksKey = "stacks"

var (
	// ErrNoStacks indicates an environment document without a stacks mapping.
	ErrNoStacks = errors.New("no stacks mapping")

	// ErrInvalidStackName indicates a stack name that cannot be addressed
	// by a path expression.
	ErrInvalidStackName = errors.New("invalid stack name")

	// ErrDuplicateEnvironment indicates two sources declaring the same environment.
	ErrDuplicateEnvironment = errors.New("duplicate environment")
)

// Environment is one named registry document.
type Environment struct {
	// Name is the filename stem or the top-level key the document came from.
	Name string

	// Source is the file the environment was loaded from.
	Source string

	// Config wraps the document, which holds the stacks mapping.
	Config *datapath.DataPath
}

// Registry holds every loaded environment.
type Registry struct {
	envs map[string]*Environment
}

// New builds a registry from already decoded environment documents. It is
// mostly useful in tests.
func New(docs map[string]map[string]any) (*Registry, error) {
	r := &Registry{envs: make(map[string]*Environment, len(docs))}
	for name, doc := range docs {
		if err := r.add(name, "", doc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load reads the registry from a directory, a single file or a glob pattern.
//
// A directory contributes every *.yaml and *.yml file in it, each named by
// its filename stem. A file whose top level holds a stacks mapping is a
// single environment named by its stem; otherwise each top-level key is an
// environment of its own.
func Load(pattern string) (*Registry, error) {
	files, err := expand(pattern)
	if err != nil {
		return nil, err
	}

	r := &Registry{envs: make(map[string]*Environment)}
	for _, file := range files {
		if err := r.loadFile(file); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func expand(pattern string) ([]string, error) {
	info, err := os.Stat(pattern)
	if err == nil {
		if !info.IsDir() {
			return []string{pattern}, nil
		}
		return listDir(pattern)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat registry %s: %w", pattern, err)
	}

	if !strings.ContainsAny(pattern, "*?[{") {
		return nil, fmt.Errorf("registry not found: %s", pattern)
	}

	base, pat := doublestar.SplitPattern(filepath.ToSlash(pattern))
	matches, err := doublestar.Glob(os.DirFS(base), pat, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob registry %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("registry pattern matched no files: %s", pattern)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m)))
	}
	sort.Strings(files)
	return files, nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read registry directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no registry files in %s", dir)
	}
	return files, nil
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (r *Registry) loadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read registry %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("parse registry %s: %w", path, err)
	}
	if doc == nil {
		return fmt.Errorf("registry %s: %w", path, ErrNoStacks)
	}

	if _, ok := doc[StacksKey]; ok {
		return r.add(stem(path), path, doc)
	}

	for name, value := range doc {
		envDoc, ok := stringKeys(value).(map[string]any)
		if !ok {
			return fmt.Errorf("registry %s: environment %s: %w", path, name, ErrNoStacks)
		}
		if err := r.add(name, path, envDoc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) add(name, source string, doc map[string]any) error {
	if existing, ok := r.envs[name]; ok {
		return fmt.Errorf("%w: %s (%s and %s)", ErrDuplicateEnvironment, name, existing.Source, source)
	}

	env := &Environment{Name: name, Source: source, Config: datapath.New(stringKeys(doc))}
	if _, err := env.Stacks(); err != nil {
		return err
	}

	r.envs[name] = env
	return nil
}

// stringKeys returns v with every mapping keyed by strings. yaml.v3 decodes
// a mapping with a non-string key, such as a stack named 2024, as
// map[any]any; its keys are formatted with fmt.Sprint.
func stringKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = stringKeys(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[fmt.Sprint(k)] = stringKeys(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = stringKeys(child)
		}
		return out
	default:
		return v
	}
}

// Environments returns every environment ordered by name.
func (r *Registry) Environments() []*Environment {
	envs := make([]*Environment, 0, len(r.envs))
	for _, env := range r.envs {
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs
}

// Environment returns the named environment.
func (r *Registry) Environment(name string) (*Environment, bool) {
	env, ok := r.envs[name]
	return env, ok
}

// Stacks returns the declared stack names in sorted order.
func (e *Environment) Stacks() ([]string, error) {
	raw, err := e.Config.Get(StacksKey)
	if err != nil {
		return nil, fmt.Errorf("environment %s: %w: %w", e.Name, ErrNoStacks, err)
	}

	stacks, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("environment %s: %w: got %T", e.Name, ErrNoStacks, raw)
	}

	names := make([]string, 0, len(stacks))
	for name := range stacks {
		if name == "" || strings.Contains(name, datapath.DefaultDelimiter) || strings.Contains(name, `"`) {
			return nil, fmt.Errorf("environment %s: %w: %q", e.Name, ErrInvalidStackName, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Enabled reports whether component is declared under stack. A stack with
// no settings at all (a null value) enables nothing.
func (e *Environment) Enabled(stack, component string) bool {
	return e.Config.Contains(datapath.Key(StacksKey, stack, component))
}
