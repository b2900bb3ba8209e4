package manifest

import (
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
)

func nameLabels(name string) map[string]string {
	return map[string]string{NameLabel: name}
}

// Deployment returns an apps/v1 Deployment whose selector and pod template
// are labelled with name.
func Deployment(name string, containers []corev1.Container) *appsv1.Deployment {
	return &appsv1.Deployment{
		TypeMeta:   metav1.TypeMeta{APIVersion: APIVersionApps, Kind: KindDeployment},
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: appsv1.DeploymentSpec{
			Selector: &metav1.LabelSelector{MatchLabels: nameLabels(name)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: nameLabels(name)},
				Spec:       corev1.PodSpec{Containers: containers},
			},
		},
	}
}

// Container returns a single-port container.
func Container(name, image string, port int32, portName string, resources corev1.ResourceRequirements) corev1.Container {
	return corev1.Container{
		Name:  name,
		Image: image,
		Ports: []corev1.ContainerPort{
			{Name: portName, ContainerPort: port},
		},
		Resources: resources,
	}
}

// TargetRef references d as an autoscaling target.
func TargetRef(d *appsv1.Deployment) autoscalingv1.CrossVersionObjectReference {
	return autoscalingv1.CrossVersionObjectReference{
		APIVersion: d.APIVersion,
		Kind:       d.Kind,
		Name:       d.Name,
	}
}

// HPA returns an autoscaling/v1 HorizontalPodAutoscaler scaling target
// between minReplicas and maxReplicas at DefaultTargetCPUUtilization.
func HPA(name string, minReplicas, maxReplicas int32, target autoscalingv1.CrossVersionObjectReference) *autoscalingv1.HorizontalPodAutoscaler {
	return &autoscalingv1.HorizontalPodAutoscaler{
		TypeMeta:   metav1.TypeMeta{APIVersion: APIVersionAutoscaling, Kind: KindHorizontalPodAutoscaler},
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: autoscalingv1.HorizontalPodAutoscalerSpec{
			ScaleTargetRef:                 target,
			MinReplicas:                    ptr.To(minReplicas),
			MaxReplicas:                    maxReplicas,
			TargetCPUUtilizationPercentage: ptr.To(DefaultTargetCPUUtilization),
		},
	}
}

// Service returns a Service exposing port on pods labelled with name. An
// empty svcType means ClusterIP.
func Service(name string, port int32, portName string, svcType corev1.ServiceType) *corev1.Service {
	if svcType == "" {
		svcType = corev1.ServiceTypeClusterIP
	}

	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: APIVersionCore, Kind: KindService},
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: nameLabels(name),
		},
		Spec: corev1.ServiceSpec{
			Ports: []corev1.ServicePort{
				{Name: portName, Port: port, TargetPort: intstr.FromInt32(port)},
			},
			Selector: nameLabels(name),
			Type:     svcType,
		},
	}
}

// ServiceAccount returns a ServiceAccount. A nil automount leaves the
// cluster default in place.
func ServiceAccount(name string, automount *bool) *corev1.ServiceAccount {
	return &corev1.ServiceAccount{
		TypeMeta:                     metav1.TypeMeta{APIVersion: APIVersionCore, Kind: KindServiceAccount},
		ObjectMeta:                   metav1.ObjectMeta{Name: name},
		AutomountServiceAccountToken: automount,
	}
}

// ResourceList parses a mapping such as {cpu: 1, memory: 1G} into a
// ResourceList. A nil value yields an empty list.
func ResourceList(raw any) (corev1.ResourceList, error) {
	if raw == nil {
		return nil, nil
	}

	entries, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("resource list must be a mapping, got %T", raw)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make(corev1.ResourceList, len(entries))
	for _, name := range names {
		q, err := resource.ParseQuantity(fmt.Sprint(entries[name]))
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", name, err)
		}
		list[corev1.ResourceName(name)] = q
	}

	return list, nil
}

// Resources builds container resource requirements from raw requests and
// limits mappings.
func Resources(requests, limits any) (corev1.ResourceRequirements, error) {
	req, err := ResourceList(requests)
	if err != nil {
		return corev1.ResourceRequirements{}, fmt.Errorf("requests: %w", err)
	}

	lim, err := ResourceList(limits)
	if err != nil {
		return corev1.ResourceRequirements{}, fmt.Errorf("limits: %w", err)
	}

	return corev1.ResourceRequirements{Requests: req, Limits: lim}, nil
}
