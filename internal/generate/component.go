// Package generate turns enabled registry entries into Kubernetes manifests.
//
// Every component (grafana, prometheus, kibana, logstash) is described by a
// Component value. Template-patch components start from YAML templates under
// the components root and patch resources and replica bounds into them.
// From-scratch components build Deployment, HorizontalPodAutoscaler, Service
// and ServiceAccount objects from their settings and optionally emit a GitOps
// Application. All output goes through a Sink.
package generate

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
)

// Mode selects how a component assembles its manifests.
type Mode int

const (
	// ModeTemplatePatch loads templates and patches settings into them.
	ModeTemplatePatch Mode = iota

	// ModeFromScratch builds typed objects from settings.
	ModeFromScratch
)

func (m Mode) String() string {
	switch m {
	case ModeTemplatePatch:
		return "template-patch"
	case ModeFromScratch:
		return "from-scratch"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Setting paths inside a component's registry entry.
const (
	SettingName        = "name"
	SettingImage       = "image"
	SettingPort        = "port"
	SettingResources   = "resources"
	SettingRequests    = "resources.requests"
	SettingLimits      = "resources.limits"
	SettingMinReplicas = "minReplicas"
	SettingMaxReplicas = "maxReplicas"
)

// Output file names.
const (
	DeploymentFile     = "deployment.yaml"
	HPAFile            = "hpa.yaml"
	ServiceFile        = "service.yaml"
	ServiceAccountFile = "service-account.yaml"
	ApplicationFile    = "application.yaml"
)

// ApplicationDir is the directory under the components root holding one
// Application template per component.
const ApplicationDir = "argocd"

// Component describes one generator.
type Component struct {
	// Name is both the registry key and the output directory name.
	Name string

	Mode Mode

	// Defaults maps setting paths to the value used when the registry entry
	// leaves them out. A setting without a default is required.
	Defaults map[string]any

	// PortName names the container and service port (from-scratch only).
	PortName string

	// ServiceType of the generated Service (from-scratch only). Empty means
	// ClusterIP.
	ServiceType corev1.ServiceType

	// StaticFiles are copied unchanged from the component's template
	// directory (template-patch only).
	StaticFiles []string

	// Application enables the GitOps Application manifest.
	Application bool
}

func defaultResources() map[string]any {
	return map[string]any{"cpu": "1", "memory": "1G"}
}

var builtin = []Component{
	{
		Name: "grafana",
		Mode: ModeFromScratch,
		Defaults: map[string]any{
			SettingName:        "grafana",
			SettingImage:       "grafana/grafana:latest",
			SettingPort:        3000,
			SettingRequests:    defaultResources(),
			SettingLimits:      defaultResources(),
			SettingMinReplicas: 1,
			SettingMaxReplicas: 1,
		},
		PortName:    "ui",
		ServiceType: corev1.ServiceTypeNodePort,
		Application: true,
	},
	{
		Name: "prometheus",
		Mode: ModeFromScratch,
		Defaults: map[string]any{
			SettingName:  "prometheus",
			SettingImage: "prom/prometheus",
			SettingPort:  9090,
		},
		PortName:    "api",
		Application: true,
	},
	{
		Name:        "kibana",
		Mode:        ModeTemplatePatch,
		StaticFiles: []string{ServiceFile, ServiceAccountFile},
	},
	{
		Name:        "logstash",
		Mode:        ModeTemplatePatch,
		StaticFiles: []string{ServiceAccountFile},
	},
}

// Components returns the built-in components in registration order.
func Components() []Component {
	out := make([]Component, len(builtin))
	copy(out, builtin)
	return out
}

// Names returns the built-in component names in registration order.
func Names() []string {
	names := make([]string, len(builtin))
	for i, c := range builtin {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the built-in component called name.
func Lookup(name string) (Component, bool) {
	for _, c := range builtin {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// Required lists the settings a registry entry must provide for c.
func (c Component) Required() []string {
	var candidates []string
	switch c.Mode {
	case ModeFromScratch:
		candidates = []string{SettingName, SettingImage, SettingPort, SettingRequests, SettingLimits, SettingMinReplicas, SettingMaxReplicas}
	default:
		candidates = []string{SettingResources, SettingMinReplicas, SettingMaxReplicas}
	}

	var required []string
	for _, s := range candidates {
		if _, ok := c.Defaults[s]; !ok {
			required = append(required, s)
		}
	}
	return required
}

// Templates lists the template files c reads, relative to the components
// root.
func (c Component) Templates() []string {
	var files []string
	if c.Mode == ModeTemplatePatch {
		files = append(files, c.Name+"/"+DeploymentFile, c.Name+"/"+HPAFile)
		for _, f := range c.StaticFiles {
			files = append(files, c.Name+"/"+f)
		}
	}
	if c.Application {
		files = append(files, ApplicationDir+"/"+c.Name+".yaml")
	}
	return files
}
