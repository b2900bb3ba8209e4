package manifest

// API versions of the generated resources.
const (
	// APIVersionApps is the group version of Deployments.
	APIVersionApps = "apps/v1"

	// APIVersionAutoscaling is the group version of HorizontalPodAutoscalers.
	APIVersionAutoscaling = "autoscaling/v1"

	// APIVersionCore is the group version of Services and ServiceAccounts.
	APIVersionCore = "v1"
)

// Kinds of the generated resources.
const (
	KindDeployment              = "Deployment"
	KindHorizontalPodAutoscaler = "HorizontalPodAutoscaler"
	KindService                 = "Service"
	KindServiceAccount          = "ServiceAccount"
	KindApplication             = "Application"
)

// NameLabel is the label key shared by pod templates, selectors and services.
const NameLabel = "name"

// DefaultTargetCPUUtilization is the CPU utilization percentage every
// generated autoscaler targets.
const DefaultTargetCPUUtilization int32 = 80

// TemplateData is the root value templates are rendered with.
type TemplateData struct {
	// Environment is the registry environment being generated.
	Environment string

	// Stack is the stack name.
	Stack string

	// Component is the component name (grafana, kibana, ...).
	Component string

	// Settings is the component's registry sub-tree.
	Settings map[string]any
}
