// Package openapi loads OpenAPI/Swagger
// documents, extracts the declared endpoint surface in declaration order,
// and removes endpoints the prune workflow has classified as dead. Parsing
// keeps the document as a yaml.Node tree so path declaration order survives
// a load/modify/save round trip.
package openapi

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
)

// httpMethods lists the operation keys recognized inside a path item, in
// the fixed order endpoints are emitted per path.
var httpMethods = []string{"get", "post", "put", "patch", "delete", "options", "head", "trace"}

// structuralSchema is the minimal shape a JSON document must have to be
// treated as an API specification. Full OpenAPI validation is a spec
// authoring concern, not ours; this only rejects documents that clearly are
// something else.
const structuralSchema = `{
	"type": "object",
	"required": ["paths"],
	"properties": {"paths": {"type": "object"}},
	"anyOf": [
		{"required": ["openapi"]},
		{"required": ["swagger"]}
	]
}`

// Document is a parsed OpenAPI/Swagger specification.
type Document struct {
	root *yaml.Node
}

// Load reads and parses a specification file. Files ending in .json are
// structurally validated first; YAML is a superset of JSON, so a single
// parser serves both.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 - caller-supplied spec path
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		if err := validateJSON(data); err != nil {
			return nil, err
		}
	}
	return Parse(data)
}

// Parse parses specification bytes.
func Parse(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("parse spec: document root is not a mapping")
	}
	return &Document{root: node.Content[0]}, nil
}

func validateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(structuralSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate spec: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("validate spec: not an OpenAPI document: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Title returns info.title, or an empty string when absent.
func (d *Document) Title() string {
	info := mapValue(d.root, "info")
	if info == nil {
		return ""
	}
	title := mapValue(info, "title")
	if title == nil {
		return ""
	}
	return title.Value
}

// Version returns the openapi or swagger version string.
func (d *Document) Version() string {
	if v := mapValue(d.root, "openapi"); v != nil {
		return v.Value
	}
	if v := mapValue(d.root, "swagger"); v != nil {
		return v.Value
	}
	return ""
}

// Endpoints extracts the declared (method, path) surface. Paths come out in
// declaration order, and operations within a path in canonical method
// order, so downstream tie-breaking is reproducible.
func (d *Document) Endpoints() []analyzer.Endpoint {
	paths := mapValue(d.root, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return nil
	}

	var endpoints []analyzer.Endpoint
	for i := 0; i+1 < len(paths.Content); i += 2 {
		pathKey, pathItem := paths.Content[i], paths.Content[i+1]
		if pathItem.Kind != yaml.MappingNode {
			continue
		}
		for _, method := range httpMethods {
			if mapValue(pathItem, method) != nil {
				endpoints = append(endpoints, analyzer.Endpoint{
					Method: strings.ToUpper(method),
					Path:   pathKey.Value,
				})
			}
		}
	}
	return endpoints
}

// Prune removes the given endpoints from the document and returns how many
// operations were deleted. A path whose last operation is removed is
// deleted entirely, even if descriptive keys remain on it.
func (d *Document) Prune(remove []analyzer.Endpoint) int {
	paths := mapValue(d.root, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return 0
	}

	doomed := make(map[string]map[string]bool, len(remove))
	for _, ep := range remove {
		m := doomed[ep.Path]
		if m == nil {
			m = make(map[string]bool)
			doomed[ep.Path] = m
		}
		m[strings.ToLower(ep.Method)] = true
	}

	removed := 0
	var keptPaths []*yaml.Node
	for i := 0; i+1 < len(paths.Content); i += 2 {
		pathKey, pathItem := paths.Content[i], paths.Content[i+1]
		methods := doomed[pathKey.Value]
		if methods != nil && pathItem.Kind == yaml.MappingNode {
			removed += pruneOperations(pathItem, methods)
		}
		if hasOperations(pathItem) {
			keptPaths = append(keptPaths, pathKey, pathItem)
		}
	}
	paths.Content = keptPaths
	return removed
}

func pruneOperations(pathItem *yaml.Node, methods map[string]bool) int {
	removed := 0
	var kept []*yaml.Node
	for i := 0; i+1 < len(pathItem.Content); i += 2 {
		key, value := pathItem.Content[i], pathItem.Content[i+1]
		if methods[strings.ToLower(key.Value)] {
			removed++
			continue
		}
		kept = append(kept, key, value)
	}
	pathItem.Content = kept
	return removed
}

func hasOperations(pathItem *yaml.Node) bool {
	if pathItem.Kind != yaml.MappingNode {
		return false
	}
	for _, method := range httpMethods {
		if mapValue(pathItem, method) != nil {
			return true
		}
	}
	return false
}

// Marshal renders the document as YAML.
func (d *Document) Marshal() ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("marshal spec: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal spec: %w", err)
	}
	return []byte(sb.String()), nil
}

// Save writes the document back to disk as YAML.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write spec: %w", err)
	}
	return nil
}

// mapValue returns the value node for a key in a mapping node, or nil.
func mapValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
