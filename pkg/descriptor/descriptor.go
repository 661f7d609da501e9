// Package descriptor loads and validates lab descriptor documents.
//
// A descriptor is parsed, checked against the schema and then every file it
// references is resolved relative to the descriptor's own directory. Loading
// either fully succeeds or returns one of ParseError, SchemaError or
// ReferenceError.
package descriptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/ethpandaops/labdesc/pkg/observability"
	"github.com/ethpandaops/labdesc/pkg/types"
)

// DefaultFileName is the descriptor file name looked up inside a scenario directory.
const DefaultFileName = "index.json"

// Format is a serialization format for descriptors.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(p string) Format {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads the descriptor at path, validates it and checks that every
// referenced file exists relative to the descriptor's directory. The
// directory is opened as an os.Root, so no reference can leave it.
func Load(path string) (*types.LabDescriptor, error) {
	return observe(func() (*types.LabDescriptor, error) {
		root, err := os.OpenRoot(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("reading descriptor %s: %w", path, err)
		}
		defer root.Close()

		return loadDescriptor(root.FS(), filepath.Base(path), path)
	})
}

// LoadFS is Load against fsys. References resolve relative to the directory
// of name inside fsys.
func LoadFS(fsys fs.FS, name string) (*types.LabDescriptor, error) {
	return observe(func() (*types.LabDescriptor, error) {
		return loadDescriptor(fsys, name, name)
	})
}

func observe(load func() (*types.LabDescriptor, error)) (*types.LabDescriptor, error) {
	start := time.Now()

	d, err := load()

	observability.ObserveLoad(loadResult(err), time.Since(start))

	return d, err
}

func loadDescriptor(fsys fs.FS, name, display string) (*types.LabDescriptor, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor %s: %w", display, err)
	}

	d, err := parse(data, FormatFromPath(name), display)
	if err != nil {
		return nil, err
	}

	if err := checkReferences(fsys, path.Dir(name), d, display); err != nil {
		return nil, err
	}

	return d, nil
}

// Parse decodes data and validates it against the schema. File references
// are not checked.
func Parse(data []byte, format Format) (*types.LabDescriptor, error) {
	return parse(data, format, "")
}

func parse(data []byte, format Format, display string) (*types.LabDescriptor, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Path: display, Err: errors.New("empty document")}
	}

	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &ParseError{Path: display, Err: err}
		}

		data = converted
	}

	var raw map[string]any
	if err := decodeObject(data, &raw); err != nil {
		return nil, &ParseError{Path: display, Err: err}
	}

	errs := checkTypes(raw)

	var d types.LabDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, &ParseError{Path: display, Err: err}
		}

		// Keys differing only in case reach the struct but not checkTypes.
		if len(errs) == 0 {
			errs = append(errs, typeError(typeErr))
		}
	}

	errs = append(errs, uncovered(Validate(&d), errs)...)

	if len(errs) > 0 {
		return nil, &SchemaError{Path: display, Errs: errs}
	}

	return &d, nil
}

// decodeObject decodes exactly one JSON object into v.
func decodeObject(data []byte, v any) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("top-level value must be an object")
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	if err := dec.Decode(v); err != nil {
		return err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}

	return nil
}

// yamlToJSON converts a single-document YAML file into JSON so both formats
// share the same decoding and type checking.
func yamlToJSON(data []byte) ([]byte, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}

		return nil, err
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after first document")
	}

	value, err := nodeValue(&doc, 0)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("converting yaml: %w", err)
	}

	return out, nil
}

const maxYAMLDepth = 64

// nodeValue turns a YAML node into JSON-compatible values. Numbers, booleans
// and nulls keep their YAML meaning; every other scalar, timestamps included,
// stays the text written in the file.
func nodeValue(n *yaml.Node, depth int) (any, error) {
	if depth > maxYAMLDepth {
		return nil, fmt.Errorf("line %d: nesting deeper than %d levels", n.Line, maxYAMLDepth)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}

		return nodeValue(n.Content[0], depth+1)
	case yaml.MappingNode:
		obj := make(map[string]any, len(n.Content)/2)

		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}

			v, err := nodeValue(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}

			obj[key.Value] = v
		}

		return obj, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))

		for _, item := range n.Content {
			v, err := nodeValue(item, depth+1)
			if err != nil {
				return nil, err
			}

			items = append(items, v)
		}

		return items, nil
	case yaml.AliasNode:
		return nodeValue(n.Alias, depth+1)
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float", "!!bool", "!!null":
			var v any
			if err := n.Decode(&v); err != nil {
				return nil, err
			}

			return v, nil
		default:
			return n.Value, nil
		}
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}

func typeError(err *json.UnmarshalTypeError) *field.Error {
	parts := strings.Split(err.Field, ".")
	p := field.NewPath(parts[0], parts[1:]...)

	return field.Invalid(p, err.Value, "must be of type "+jsonTypeName(err.Type.Kind().String()))
}

func jsonTypeName(kind string) string {
	switch kind {
	case "struct", "ptr":
		return "object"
	case "slice":
		return "array"
	default:
		return kind
	}
}

// Encode serializes d in the given format.
func Encode(d *types.LabDescriptor, format Format) ([]byte, error) {
	if format == FormatYAML {
		out, err := yaml.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}

		return out, nil
	}

	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}

	return append(out, '\n'), nil
}

// Resolve returns the filesystem path of ref for the descriptor at descriptorPath.
func Resolve(descriptorPath, ref string) string {
	return filepath.Join(filepath.Dir(descriptorPath), filepath.FromSlash(ref))
}

func loadResult(err error) string {
	var (
		parseErr  *ParseError
		schemaErr *SchemaError
		refErr    *ReferenceError
	)

	switch {
	case err == nil:
		return observability.LoadResultOK
	case errors.As(err, &parseErr):
		return observability.LoadResultParseError
	case errors.As(err, &schemaErr):
		return observability.LoadResultSchemaError
	case errors.As(err, &refErr):
		return observability.LoadResultReferenceError
	default:
		return observability.LoadResultReadError
	}
}
