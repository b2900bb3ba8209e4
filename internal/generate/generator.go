package generate

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"

	"github.com/cameronsjo/stackgen/internal/datapath"
	"github.com/cameronsjo/stackgen/internal/manifest"
)

// Patch targets inside the templates.
const (
	containerResourcesPath = "spec.template.spec.containers.0.resources"
	minReplicasPath        = "spec.minReplicas"
	maxReplicasPath        = "spec.maxReplicas"
	sourcePathPath         = "spec.source.path"
)

// Request is one component generation for one stack.
type Request struct {
	// ComponentsRoot holds the per-component template directories and the
	// Application templates.
	ComponentsRoot string

	// OutputRoot receives <stack>/<component>/.
	OutputRoot string

	// SourceBase, when set, makes Application source paths relative to it.
	SourceBase string

	// Registry is the environment document holding the stacks mapping.
	Registry *datapath.DataPath

	Environment string
	Stack       string

	Sink Sink
}

// OutputDir returns the directory c writes for stack.
func (c Component) OutputDir(outputRoot, stack string) string {
	return filepath.Join(outputRoot, stack, c.Name)
}

// Generate writes c's manifests for req.Stack. The output directory is
// created first; reruns with the same input produce identical files. A
// required setting missing from the registry surfaces as
// datapath.ErrNotFound.
func (c Component) Generate(req Request) error {
	if err := c.generate(req); err != nil {
		return fmt.Errorf("generate %s for stack %s: %w", c.Name, req.Stack, err)
	}
	return nil
}

func (c Component) generate(req Request) error {
	s, err := loadSettings(req.Registry, req.Stack, c)
	if err != nil {
		return err
	}

	outDir := c.OutputDir(req.OutputRoot, req.Stack)
	slog.Debug("generating component",
		"component", c.Name,
		"stack", req.Stack,
		"environment", req.Environment,
		"mode", c.Mode,
		"output", outDir,
	)

	if err := req.Sink.MkdirAll(outDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	data := manifest.TemplateData{
		Environment: req.Environment,
		Stack:       req.Stack,
		Component:   c.Name,
		Settings:    s.raw,
	}

	switch c.Mode {
	case ModeFromScratch:
		err = c.fromScratch(req, s, outDir)
	default:
		err = c.templatePatch(req, s, outDir)
	}
	if err != nil {
		return err
	}

	if c.Application {
		return c.application(req, data, outDir)
	}
	return nil
}

func (c Component) templatePatch(req Request, s *settings, outDir string) error {
	home := filepath.Join(req.ComponentsRoot, c.Name)

	deployment, err := manifest.LoadTemplate(filepath.Join(home, DeploymentFile))
	if err != nil {
		return err
	}
	resources, err := s.get(SettingResources)
	if err != nil {
		return err
	}
	if err := deployment.Set(containerResourcesPath, resources); err != nil {
		return fmt.Errorf("patch %s: %w", DeploymentFile, err)
	}

	hpa, err := manifest.LoadTemplate(filepath.Join(home, HPAFile))
	if err != nil {
		return err
	}
	for _, patch := range [][2]string{
		{minReplicasPath, SettingMinReplicas},
		{maxReplicasPath, SettingMaxReplicas},
	} {
		v, err := s.get(patch[1])
		if err != nil {
			return err
		}
		if err := hpa.Set(patch[0], v); err != nil {
			return fmt.Errorf("patch %s: %w", HPAFile, err)
		}
	}

	if err := writeDocument(req.Sink, outDir, DeploymentFile, deployment.Data()); err != nil {
		return err
	}
	if err := writeDocument(req.Sink, outDir, HPAFile, hpa.Data()); err != nil {
		return err
	}

	for _, name := range c.StaticFiles {
		if err := req.Sink.CopyFile(filepath.Join(home, name), filepath.Join(outDir, name)); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}

	return nil
}

func (c Component) fromScratch(req Request, s *settings, outDir string) error {
	name, err := s.string(SettingName)
	if err != nil {
		return err
	}
	image, err := s.string(SettingImage)
	if err != nil {
		return err
	}
	port, err := s.int32(SettingPort)
	if err != nil {
		return err
	}
	requests, err := s.get(SettingRequests)
	if err != nil {
		return err
	}
	limits, err := s.get(SettingLimits)
	if err != nil {
		return err
	}
	resources, err := manifest.Resources(requests, limits)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", s.prefix, SettingResources, err)
	}
	minReplicas, err := s.int32(SettingMinReplicas)
	if err != nil {
		return err
	}
	maxReplicas, err := s.int32(SettingMaxReplicas)
	if err != nil {
		return err
	}

	deployment := manifest.Deployment(name, []corev1.Container{
		manifest.Container(name, image, port, c.PortName, resources),
	})

	objects := []struct {
		file string
		obj  runtime.Object
	}{
		{DeploymentFile, deployment},
		{HPAFile, manifest.HPA(name, minReplicas, maxReplicas, manifest.TargetRef(deployment))},
		{ServiceFile, manifest.Service(name, port, c.PortName, c.ServiceType)},
		{ServiceAccountFile, manifest.ServiceAccount(name, ptr.To(false))},
	}

	for _, o := range objects {
		doc, err := manifest.ToDocument(o.obj)
		if err != nil {
			return err
		}
		if o.file == DeploymentFile {
			if err := keepRawResources(doc, requests, limits); err != nil {
				return err
			}
		}
		if err := writeDocument(req.Sink, outDir, o.file, doc); err != nil {
			return err
		}
	}

	return nil
}

// keepRawResources replaces the canonical quantities of the container
// resources with the registry values, so 1.5Gi is written as 1.5Gi rather
// than 1536Mi. The values were already validated as quantities.
func keepRawResources(doc map[string]any, requests, limits any) error {
	raw := make(map[string]any, 2)
	if requests != nil {
		raw["requests"] = requests
	}
	if limits != nil {
		raw["limits"] = limits
	}
	if len(raw) == 0 {
		return nil
	}

	if err := datapath.New(doc).Set(containerResourcesPath, raw); err != nil {
		return fmt.Errorf("patch %s: %w", DeploymentFile, err)
	}
	return nil
}

func (c Component) application(req Request, data manifest.TemplateData, outDir string) error {
	app, err := manifest.RenderTemplate(filepath.Join(req.ComponentsRoot, ApplicationDir, c.Name+".yaml"), data)
	if err != nil {
		return err
	}
	if err := app.Set(sourcePathPath, sourcePath(req.SourceBase, outDir)); err != nil {
		return fmt.Errorf("patch %s: %w", ApplicationFile, err)
	}
	return writeDocument(req.Sink, outDir, ApplicationFile, app.Data())
}

// sourcePath expresses dir relative to base when dir lies inside it.
func sourcePath(base, dir string) string {
	if base != "" {
		rel, err := filepath.Rel(base, dir)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(dir)
}

func writeDocument(sink Sink, dir, name string, doc any) error {
	out, err := manifest.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := sink.WriteFile(filepath.Join(dir, name), out); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
