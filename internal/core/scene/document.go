package scene

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Document describes a scene: an ordered list of entity descriptors plus the
// systems the scene wants running.
//
// The on-disk form is YAML or JSON (yaml.v3 reads both). Either a bare list of
// entities, or a mapping:
//
//	name: arena
//	systems:
//	  - type: movement
//	    period: 20ms
//	entities:
//	  - transform: {x: 0, y: 0}
//	    parent: {index: 1}
//	  - transform: {x: 10, y: 0}
type Document struct {
	Name     string       `yaml:"name" json:"name"`
	Systems  []SystemSpec `yaml:"systems" json:"systems"`
	Entities []EntitySpec `yaml:"entities" json:"entities"`
}

// SystemSpec names a registered system factory.
type SystemSpec struct {
	Type   string        `yaml:"type" json:"type"`
	Name   string        `yaml:"name,omitempty" json:"name,omitempty"`
	Period time.Duration `yaml:"period,omitempty" json:"period,omitempty"`
	Params Params        `yaml:"params,omitempty" json:"params,omitempty"`
}

// EntitySpec is one entity descriptor: component identifier -> parameters, in
// declaration order.
type EntitySpec struct {
	Components []ComponentSpec
}

// ComponentSpec is a single identifier/parameter pair of an entity descriptor.
type ComponentSpec struct {
	Identifier string
	Params     Params
	// invalid records a parameter document that could not be decoded; the
	// loader reports it as a failure of this component only.
	invalid error
}

// Empty returns a document with no entities or systems.
func Empty(name string) *Document {
	return &Document{Name: name}
}

// UnmarshalYAML keeps component order and isolates bad parameter documents.
func (e *EntitySpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: entity descriptor must be a mapping", node.Line)
	}
	e.Components = make([]ComponentSpec, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		spec := ComponentSpec{Identifier: key.Value}
		spec.Params, spec.invalid = decodeParams(value)
		e.Components = append(e.Components, spec)
	}
	return nil
}

// UnmarshalYAML accepts both the bare list form and the mapping form.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&d.Entities)
	}
	type plain Document
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = Document(p)
	return nil
}

func decodeParams(node *yaml.Node) (Params, error) {
	switch node.Kind {
	case yaml.MappingNode:
		var p map[string]any
		if err := node.Decode(&p); err != nil {
			return Params{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Params(p), nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return Params{}, nil
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return Params{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Params{"value": v}, nil
	case yaml.SequenceNode:
		var v []any
		if err := node.Decode(&v); err != nil {
			return Params{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Params{"items": v}, nil
	default:
		return Params{}, fmt.Errorf("line %d: unsupported parameter document", node.Line)
	}
}

// Parse decodes a YAML or JSON scene document.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptySource
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &doc, nil
}

// Read decodes a document from r.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ReadFile decodes the document at path. The scene name defaults to the file name.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = sceneName(path)
	}
	return doc, nil
}

// Source locates a scene document: a file path, raw bytes, or an already
// decoded document, checked in that order of precedence: Document, Data, Path.
type Source struct {
	Path     string
	Data     []byte
	Document *Document
}

func (s Source) IsZero() bool {
	return s.Document == nil && len(s.Data) == 0 && s.Path == ""
}

func (s Source) Name() string {
	switch {
	case s.Document != nil && s.Document.Name != "":
		return s.Document.Name
	case s.Path != "":
		return sceneName(s.Path)
	default:
		return "inline"
	}
}

// Open resolves the source into a document.
func (s Source) Open() (*Document, error) {
	switch {
	case s.Document != nil:
		return s.Document, nil
	case len(s.Data) > 0:
		doc, err := Parse(s.Data)
		if err != nil {
			return nil, err
		}
		if doc.Name == "" {
			doc.Name = s.Name()
		}
		return doc, nil
	case s.Path != "":
		return ReadFile(s.Path)
	default:
		return nil, ErrEmptySource
	}
}

func sceneName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
