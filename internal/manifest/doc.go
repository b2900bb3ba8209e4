// Package manifest builds and serializes the Kubernetes resources that make
// up a component deployment.
//
// Resources come from two sources:
//
//   - typed objects built from k8s.io/api (Deployment, HorizontalPodAutoscaler,
//     Service, ServiceAccount), converted to plain documents by ToDocument
//   - YAML templates loaded from a component directory by LoadTemplate and
//     patched in place through a datapath.DataPath
//
// Both end up as map documents serialized by Marshal, so output is stable
// across runs:
//
//	doc, _ := manifest.ToDocument(manifest.ServiceAccount("grafana", ptr.To(false)))
//	out, _ := manifest.Marshal(doc)
//
// # Templates
//
// LoadTemplate never interprets braces. RenderTemplate executes a file as a
// Go text/template with the sprig function map before decoding, with
// TemplateData as its root. Only Argo CD Application templates go through
// it:
//
//	metadata:
//	  name: {{ .Stack }}-{{ .Component }}
//	  labels:
//	    environment: {{ .Environment | quote }}
package manifest
