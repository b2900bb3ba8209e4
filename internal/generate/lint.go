package generate

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/cameronsjo/stackgen/internal/datapath"
	"github.com/cameronsjo/stackgen/internal/manifest"
	"github.com/cameronsjo/stackgen/internal/registry"
)

// Problem is a lint finding for one component of one stack.
type Problem struct {
	Environment string
	Stack       string
	Component   string
	Err         error
}

func (p Problem) String() string {
	return fmt.Sprintf("%s/%s/%s: %v", p.Environment, p.Stack, p.Component, p.Err)
}

// discardSink accepts every write. Copies only check that the source exists.
type discardSink struct{}

func (discardSink) MkdirAll(string) error { return nil }
func (discardSink) WriteFile(string, []byte) error { return nil }
func (discardSink) CopyFile(src, _ string) error {
	_, err := os.Stat(src)
	return err
}

// expectedKind returns the kind a template file has to declare.
func expectedKind(file string) string {
	if path.Dir(file) == ApplicationDir {
		return "Application"
	}
	switch path.Base(file) {
	case DeploymentFile:
		return "Deployment"
	case HPAFile:
		return "HorizontalPodAutoscaler"
	case ServiceFile:
		return "Service"
	case ServiceAccountFile:
		return "ServiceAccount"
	}
	return ""
}

// Lint checks every enabled component of reg without writing anything.
// Each component runs against a sink that drops its output, so missing or
// mistyped settings and broken templates are reported the way a real run
// would fail; the templates it read are then checked for the expected kind.
// Unlike Generate, Lint keeps going after a problem.
func Lint(reg *registry.Registry, opts Options) ([]Problem, error) {
	components := opts.Components
	if components == nil {
		components = Components()
	}

	var problems []Problem
	for _, env := range reg.Environments() {
		stacks, err := env.Stacks()
		if err != nil {
			return problems, err
		}

		for _, stack := range stacks {
			for _, c := range components {
				if !env.Enabled(stack, c.Name) {
					continue
				}

				report := func(err error) {
					problems = append(problems, Problem{
						Environment: env.Name,
						Stack:       stack,
						Component:   c.Name,
						Err:         err,
					})
				}

				req := Request{
					ComponentsRoot: opts.ComponentsRoot,
					OutputRoot:     opts.OutputRoot,
					SourceBase:     opts.SourceBase,
					Registry:       env.Config,
					Environment:    env.Name,
					Stack:          stack,
					Sink:           discardSink{},
				}
				if err := c.Generate(req); err != nil {
					report(err)
					continue
				}

				for _, err := range c.lintTemplates(req) {
					report(err)
				}
			}
		}
	}

	return problems, nil
}

func (c Component) lintTemplates(req Request) []error {
	s, err := loadSettings(req.Registry, req.Stack, c)
	if err != nil {
		return []error{err}
	}
	data := manifest.TemplateData{
		Environment: req.Environment,
		Stack:       req.Stack,
		Component:   c.Name,
		Settings:    s.raw,
	}

	var errs []error
	for _, file := range c.Templates() {
		full := filepath.Join(req.ComponentsRoot, filepath.FromSlash(file))
		var doc *datapath.DataPath
		if path.Dir(file) == ApplicationDir {
			doc, err = manifest.RenderTemplate(full, data)
		} else {
			doc, err = manifest.LoadTemplate(full)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := manifest.ValidateKind(doc, expectedKind(file)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
		}
	}
	return errs
}
