package vars

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Nested groups in variable files are flattened by concatenating keys, so
//
//	Flange:
//	  NBolts: 8
//
// sets FlangeNBolts. This matches how components prefix their variables
// with their own key name.

// LoadFile reads a YAML or HCL variable file, chosen by extension, into s.
func LoadFile(s *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("vars: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(s, data)
	case ".hcl":
		return LoadHCL(s, path, data)
	}
	return fmt.Errorf("vars: unsupported variable file %q", path)
}

// ----------------------------------------------------------------------------
// YAML
// ----------------------------------------------------------------------------

// LoadYAML decodes a YAML mapping into s. Document order is kept.
func LoadYAML(s *Store, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("vars: parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("vars: yaml line %d: top level must be a mapping", root.Line)
	}
	return walkYAML(s, "", root)
}

func walkYAML(s *Store, prefix string, m *yaml.Node) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		name := prefix + key.Value
		switch val.Kind {
		case yaml.MappingNode:
			if err := walkYAML(s, name, val); err != nil {
				return err
			}
		case yaml.ScalarNode:
			var v any
			if err := val.Decode(&v); err != nil {
				return fmt.Errorf("vars: yaml line %d: %w", val.Line, err)
			}
			if v == nil {
				return fmt.Errorf("vars: yaml line %d: %s has no value", val.Line, name)
			}
			if err := s.Set(name, v); err != nil {
				return fmt.Errorf("vars: yaml line %d: %w", val.Line, err)
			}
		default:
			return fmt.Errorf("vars: yaml line %d: %s must be a scalar or mapping", val.Line, name)
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// HCL
// ----------------------------------------------------------------------------

// LoadHCL decodes an HCL file into s. Top-level attributes are set as is;
// a labelled block such as
//
//	component "Flange" {
//	  NBolts = 8
//	}
//
// prefixes its attributes with the last label. Attributes are evaluated
// without variables or functions.
func LoadHCL(s *Store, filename string, data []byte) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return fmt.Errorf("vars: parse hcl: %w", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return fmt.Errorf("vars: %s: unexpected hcl body type %T", filename, file.Body)
	}
	return walkHCL(s, "", body)
}

func walkHCL(s *Store, prefix string, body *hclsyntax.Body) error {
	attrs := body.Attributes
	names := make([]*hclsyntax.Attribute, 0, len(attrs))
	for _, a := range attrs {
		names = append(names, a)
	}
	// Map order is random; source order keeps Names() stable.
	sortAttributes(names)
	for _, a := range names {
		val, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("vars: %s: %w", a.Name, diags)
		}
		v, err := ctyToGo(val)
		if err != nil {
			return fmt.Errorf("vars: %s: %s: %w", a.SrcRange, a.Name, err)
		}
		if err := s.Set(prefix+a.Name, v); err != nil {
			return err
		}
	}
	for _, b := range body.Blocks {
		p := prefix
		if len(b.Labels) > 0 {
			p += b.Labels[len(b.Labels)-1]
		} else {
			p += b.Type
		}
		if err := walkHCL(s, p, b.Body); err != nil {
			return err
		}
	}
	return nil
}

func sortAttributes(as []*hclsyntax.Attribute) {
	sort.Slice(as, func(i, j int) bool {
		return as[i].SrcRange.Start.Byte < as[j].SrcRange.Start.Byte
	})
}

func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, fmt.Errorf("value is null or unknown")
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case cty.Bool:
		return val.True(), nil
	}
	return nil, fmt.Errorf("unsupported type %s", val.Type().FriendlyName())
}
