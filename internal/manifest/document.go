package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/runtime"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/cameronsjo/stackgen/internal/datapath"
)

// ToDocument converts a typed object into a plain document. Status, nil
// fields and empty mappings are dropped so the result only carries what was
// set.
func ToDocument(obj runtime.Object) (map[string]any, error) {
	doc, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("convert %T: %w", obj, err)
	}

	delete(doc, "status")
	prune(doc)

	return doc, nil
}

// prune removes nil values and mappings left empty, depth first.
func prune(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			prune(val)
			if len(val) == 0 {
				delete(m, k)
			}
		case []any:
			for _, item := range val {
				if child, ok := item.(map[string]any); ok {
					prune(child)
				}
			}
		}
	}
}

// Marshal serializes a document as YAML with sorted keys.
func Marshal(doc any) ([]byte, error) {
	out, err := sigsyaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return out, nil
}

// LoadTemplate reads a YAML manifest template and wraps the decoded
// document for patching. The file is decoded as is, so brace strings such
// as alerting rule annotations survive untouched.
func LoadTemplate(path string) (*datapath.DataPath, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return decode(path, content)
}

// RenderTemplate reads a template, executes it as a Go text/template with
// the sprig functions and data as root, then decodes the result like
// LoadTemplate.
func RenderTemplate(path string, data TemplateData) (*datapath.DataPath, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	content, err = render(filepath.Base(path), content, data)
	if err != nil {
		return nil, err
	}
	return decode(path, content)
}

func decode(path string, content []byte) (*datapath.DataPath, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("template %s is empty", path)
	}

	return datapath.New(doc), nil
}

func render(name string, content []byte, data TemplateData) ([]byte, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}

	return buf.Bytes(), nil
}
