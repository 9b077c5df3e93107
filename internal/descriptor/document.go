package descriptor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Document declares objects and enums in a file, for schemas that are not
// backed by Go types (admin API, CLI).
//
//	source: shop
//	enums:
//	  - name: Role
//	    members: [admin, user]
//	objects:
//	  - name: User
//	    fields:
//	      - {name: name, type: string}
//	      - {name: age, type: "Min<0> & Max<120>"}
//	      - {name: role, type: Role, optional: true}
type Document struct {
	Source  string       `yaml:"source" toml:"source" json:"source"`
	Enums   []EnumDecl   `yaml:"enums" toml:"enums" json:"enums"`
	Objects []ObjectDecl `yaml:"objects" toml:"objects" json:"objects"`
}

// EnumDecl declares one enum.
type EnumDecl struct {
	Name    string `yaml:"name" toml:"name" json:"name"`
	Members []any  `yaml:"members" toml:"members" json:"members"`
}

// ObjectDecl declares one object.
type ObjectDecl struct {
	Name   string      `yaml:"name" toml:"name" json:"name"`
	Fields []FieldDecl `yaml:"fields" toml:"fields" json:"fields"`
}

// FieldDecl declares one object property with a type expression.
type FieldDecl struct {
	Name     string `yaml:"name" toml:"name" json:"name"`
	Type     string `yaml:"type" toml:"type" json:"type"`
	Optional bool   `yaml:"optional" toml:"optional" json:"optional"`
}

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported descriptor document extension %q", filepath.Ext(path))
}

// LoadDocument reads and decodes a document file.
// An empty source defaults to the file name without extension.
func LoadDocument(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Source == "" {
		doc.Source = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// ParseDocument decodes a document in the given format.
func ParseDocument(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown toml keys: %v", undecoded)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	return &doc, nil
}

// Declare registers the document's enums and objects in c.
// All names are reserved before any field type is parsed, so declarations
// may reference each other in any order.
func (d *Document) Declare(c *Catalog) error {
	for _, e := range d.Enums {
		if e.Name == "" {
			return fmt.Errorf("%s: enum without name", d.Source)
		}
		if err := c.DeclareEnum(Ref{Source: d.Source, Name: e.Name}, e.Members); err != nil {
			return err
		}
	}

	for _, o := range d.Objects {
		if o.Name == "" {
			return fmt.Errorf("%s: object without name", d.Source)
		}
		if err := c.reserveObject(Ref{Source: d.Source, Name: o.Name}); err != nil {
			return err
		}
	}

	for _, o := range d.Objects {
		fields := make([]Field, 0, len(o.Fields))
		for _, f := range o.Fields {
			expr := f.Type
			if strings.TrimSpace(expr) == "" {
				expr = "any"
			}
			t, err := c.ParseType(d.Source, expr)
			if err != nil {
				return fmt.Errorf("%s.%s.%s: %w", d.Source, o.Name, f.Name, err)
			}
			fields = append(fields, Field{Name: f.Name, Optional: f.Optional, Type: t})
		}
		if err := c.DeclareObject(Ref{Source: d.Source, Name: o.Name}, fields); err != nil {
			return err
		}
	}
	return nil
}

// LoadCatalog loads every document path into a fresh catalog.
func LoadCatalog(paths ...string) (*Catalog, error) {
	c := NewCatalog()
	for _, path := range paths {
		doc, err := LoadDocument(path)
		if err != nil {
			return nil, err
		}
		if err := doc.Declare(c); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return c, nil
}
