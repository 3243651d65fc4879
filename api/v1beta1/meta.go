// Package v1beta1 contains the v1beta1 API types for crumbs documents.
package v1beta1

import (
	"errors"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// APIVersion is the current API version for all crumbs document kinds.
const APIVersion = "crumbs.jacobcolvin.com/v1beta1"

var (
	// ValidAPIVersions contains all valid API versions.
	ValidAPIVersions = []string{APIVersion}

	// ErrAPIVersion is returned for an unsupported apiVersion.
	ErrAPIVersion = errors.New("unsupported apiVersion")

	// ErrKind is returned for a kind that does not match the document type.
	ErrKind = errors.New("unsupported kind")
)

// TypeMeta contains the API version and kind metadata common to all
// document types.
type TypeMeta struct {
	// APIVersion specifies the API version for this document.
	APIVersion string `json:"apiVersion" jsonschema:"required,title=API Version"`
	// Kind defines the type of document.
	Kind string `json:"kind" jsonschema:"required,title=Kind"`
}

// NewTypeMeta returns the [TypeMeta] of kind at the current [APIVersion].
func NewTypeMeta(kind string) TypeMeta {
	return TypeMeta{APIVersion: APIVersion, Kind: kind}
}

// GetAPIVersion returns the API version.
func (tm TypeMeta) GetAPIVersion() string {
	return tm.APIVersion
}

// GetKind returns the kind.
func (tm TypeMeta) GetKind() string {
	return tm.Kind
}

// Check returns an error unless the API version is valid and the kind is
// one of kinds.
func (tm TypeMeta) Check(kinds ...string) error {
	if !slices.Contains(ValidAPIVersions, tm.APIVersion) {
		return fmt.Errorf("%w %q, want one of %v", ErrAPIVersion, tm.APIVersion, ValidAPIVersions)
	}

	if !slices.Contains(kinds, tm.Kind) {
		return fmt.Errorf("%w %q, want one of %v", ErrKind, tm.Kind, kinds)
	}

	return nil
}

// Object is the interface that all document types implement.
type Object interface {
	GetAPIVersion() string
	GetKind() string
	EnsureDefaults()
}

// ExtendSchemaWithEnums adds apiVersion and kind enum constraints to a JSON schema.
func ExtendSchemaWithEnums(jss *jsonschema.Schema, apiVersions, kinds []string) {
	extendConst(jss, "apiVersion", "API Version", apiVersions)
	extendConst(jss, "kind", "Kind", kinds)
}

func extendConst(jss *jsonschema.Schema, property, title string, values []string) {
	prop, ok := jss.Properties.Get(property)
	if !ok {
		panic(property + " property not found in schema")
	}

	for _, v := range values {
		prop.OneOf = append(prop.OneOf, &jsonschema.Schema{
			Type:  "string",
			Const: v,
			Title: title,
		})
	}

	_, _ = jss.Properties.Set(property, prop)
}
