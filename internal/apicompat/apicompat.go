// Package apicompat detects backward-incompatible changes between two
// Swagger/OpenAPI documents: removed paths, removed operations and removed
// response codes. Documents may be YAML or JSON.
package apicompat

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

// Operation is the part of an operation the check compares.
type Operation struct {
	Responses map[string]struct{}
}

// Spec maps path -> lower-case method -> operation.
type Spec struct {
	Paths map[string]map[string]Operation
}

// Parse reads the paths section of a Swagger or OpenAPI document.
func Parse(raw []byte) (Spec, error) {
	doc := map[string]any{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Spec{}, fmt.Errorf("decode document: %w", err)
	}

	pathsRaw, ok := doc["paths"]
	if !ok {
		return Spec{}, errors.New("missing top-level paths field")
	}
	pathsMap, ok := toMap(pathsRaw)
	if !ok {
		return Spec{}, errors.New("paths is not an object")
	}

	spec := Spec{Paths: make(map[string]map[string]Operation, len(pathsMap))}
	for path, entry := range pathsMap {
		methods, ok := toMap(entry)
		if !ok {
			continue
		}
		ops := make(map[string]Operation)
		for method, opRaw := range methods {
			method = strings.ToLower(strings.TrimSpace(method))
			if _, supported := supportedMethods[method]; !supported {
				continue
			}
			opMap, ok := toMap(opRaw)
			if !ok {
				continue
			}
			ops[method] = Operation{Responses: responseCodes(opMap)}
		}
		if len(ops) > 0 {
			spec.Paths[path] = ops
		}
	}
	return spec, nil
}

func responseCodes(op map[string]any) map[string]struct{} {
	codes := make(map[string]struct{})
	responses, ok := toMap(op["responses"])
	if !ok {
		return codes
	}
	for code := range responses {
		code = strings.ToLower(strings.TrimSpace(code))
		if code != "" {
			codes[code] = struct{}{}
		}
	}
	return codes
}

// yaml.v3 decodes nested mappings as map[string]any, but integer keys such
// as response codes may come back as map[any]any.
func toMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// Compare lists every change in revision that breaks a client of base.
// The result is sorted.
func Compare(base, revision Spec) []string {
	var issues []string
	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, baseOp := range baseOps {
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}
