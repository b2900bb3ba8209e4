package manifest

import (
	"errors"
	"fmt"

	"github.com/cameronsjo/stackgen/internal/datapath"
)

// Validation errors for manifest templates.
var (
	// ErrMissingAPIVersion indicates a document without an apiVersion field.
	ErrMissingAPIVersion = errors.New("missing apiVersion field")

	// ErrMissingKind indicates a document without a kind field.
	ErrMissingKind = errors.New("missing kind field")

	// ErrKindMismatch indicates the kind doesn't match what was expected.
	ErrKindMismatch = errors.New("kind mismatch")
)

// Meta contains the type fields of a manifest document.
type Meta struct {
	APIVersion string
	Kind       string
}

// ReadMeta extracts apiVersion and kind from a document. Missing fields
// are reported as sentinel errors; a document that is not a mapping
// surfaces the datapath error.
func ReadMeta(doc *datapath.DataPath) (*Meta, error) {
	meta := &Meta{}

	apiVersion, err := doc.Get("apiVersion")
	if errors.Is(err, datapath.ErrNotFound) {
		return meta, ErrMissingAPIVersion
	}
	if err != nil {
		return meta, err
	}
	meta.APIVersion = fmt.Sprint(apiVersion)

	kind, err := doc.Get("kind")
	if errors.Is(err, datapath.ErrNotFound) {
		return meta, ErrMissingKind
	}
	if err != nil {
		return meta, err
	}
	meta.Kind = fmt.Sprint(kind)

	return meta, nil
}

// ValidateKind checks that doc carries an apiVersion and the expected kind.
func ValidateKind(doc *datapath.DataPath, expected string) error {
	meta, err := ReadMeta(doc)
	if err != nil {
		return err
	}

	if meta.APIVersion == "" {
		return ErrMissingAPIVersion
	}
	if meta.Kind != expected {
		return fmt.Errorf("%w: got %s, expected %s", ErrKindMismatch, meta.Kind, expected)
	}

	return nil
}
