// Package convert provides format conversion components: file contents to
// text, YAML to JSON and back, and CSV to JSON records.
package convert

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
	"gopkg.in/yaml.v3"
)

// Plugin registers the convert.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the convert plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "convert",
			PluginVersion:     "1.0.0",
			PluginDescription: "File and document format conversions",
		},
	}
}

// Components returns the convert.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		register(fileToTextDescriptor, fileToText),
		register(yamlToJSONDescriptor, yamlToJSON),
		register(jsonToYAMLDescriptor, jsonToYAML),
		register(csvToJSONDescriptor, csvToJSON),
	}
}

type convertFunc func(b component.Base, in component.Inputs) (any, error)

type converter struct {
	component.Base
	fn convertFunc
}

func (c *converter) Run(_ context.Context, in component.Inputs) (any, error) {
	return c.fn(c.Base, in)
}

func register(d component.Descriptor, fn convertFunc) component.Registration {
	return component.Registration{
		Descriptor: d,
		Factory: func(cfg component.Config) (component.Component, error) {
			return &converter{Base: component.NewBase(d, cfg), fn: fn}, nil
		},
	}
}

var fileToTextDescriptor = component.Descriptor{
	Name:        "convert.file_to_text",
	Description: "Reads a UTF-8 text file and returns its contents",
	Group:       "convert",
	Inputs:      []component.InputDef{{Name: "file", Type: component.TypeFile}},
	Output:      component.TypeText,
	Config: []component.ConfigField{
		{Key: "max_bytes", Default: 10 << 20, Description: "Reject files larger than this"},
	},
}

func fileToText(b component.Base, in component.Inputs) (any, error) {
	data, err := readFile(b, in, "file")
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, b.InvalidInput("file", "content is not valid UTF-8 text")
	}
	return string(data), nil
}

func readFile(b component.Base, in component.Inputs, name string) ([]byte, error) {
	f, err := in.File(name)
	if err != nil {
		return nil, b.InvalidInput(name, "%v", err)
	}
	if err := f.Exists(); err != nil {
		return nil, b.InvalidInput(name, "%v", err)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, b.InvalidInput(name, "%v", err)
	}
	defer rc.Close()

	limit := int64(b.Config().Int("max_bytes", 10<<20))
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, b.External("read", err)
	}
	if int64(len(data)) > limit {
		return nil, b.InvalidInput(name, "%s exceeds max_bytes %d", f.DisplayName(), limit)
	}
	return data, nil
}

var yamlToJSONDescriptor = component.Descriptor{
	Name:        "convert.yaml_to_json",
	Description: "Parses a YAML document into a JSON-compatible structure",
	Group:       "convert",
	Inputs:      []component.InputDef{{Name: "yaml", Type: component.TypeText}},
	Output:      component.TypeJSON,
}

func yamlToJSON(b component.Base, in component.Inputs) (any, error) {
	var doc any
	if err := yaml.Unmarshal([]byte(in.Text("yaml")), &doc); err != nil {
		return nil, b.InvalidInput("yaml", "%v", err)
	}
	out, err := jsonCompatible(doc)
	if err != nil {
		return nil, b.InvalidInput("yaml", "%v", err)
	}
	return out, nil
}

// jsonCompatible converts YAML-decoded values (which may carry non-string
// map keys and integer scalars) into encoding/json's shapes.
func jsonCompatible(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			c, err := jsonCompatible(item)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			c, err := jsonCompatible(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			c, err := jsonCompatible(item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float64, string, bool, nil:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported YAML value of type %T", v)
	}
}

var jsonToYAMLDescriptor = component.Descriptor{
	Name:        "convert.json_to_yaml",
	Description: "Renders a JSON value as a YAML document",
	Group:       "convert",
	Inputs:      []component.InputDef{{Name: "json", Type: component.TypeJSON}},
	Output:      component.TypeText,
	Config: []component.ConfigField{
		{Key: "indent", Default: 2},
	},
}

func jsonToYAML(b component.Base, in component.Inputs) (any, error) {
	indent := b.Config().Int("indent", 2)
	if indent < 1 {
		return nil, component.Configuration(b.Name(), "indent", "must be positive, got %d", indent)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(in.Value("json")); err != nil {
		return nil, b.InvalidInput("json", "%v", err)
	}
	if err := enc.Close(); err != nil {
		return nil, b.InvalidInput("json", "%v", err)
	}
	return buf.String(), nil
}

var csvToJSONDescriptor = component.Descriptor{
	Name:        "convert.csv_to_json",
	Description: "Reads a CSV file into a list of records",
	Group:       "convert",
	Inputs:      []component.InputDef{{Name: "file", Type: component.TypeFile}},
	Output:      component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "delimiter", Default: ",", Description: "Single-character field separator"},
		{Key: "header", Default: true, Description: "First row names the fields; otherwise rows are lists"},
		{Key: "max_bytes", Default: 10 << 20},
	},
}

func csvToJSON(b component.Base, in component.Inputs) (any, error) {
	delim := []rune(b.Config().String("delimiter"))
	if len(delim) != 1 {
		return nil, component.Configuration(b.Name(), "delimiter", "must be a single character")
	}
	data, err := readFile(b, in, "file")
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim[0]
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, b.InvalidInput("file", "line %d: %v", perr.Line, perr.Err)
		}
		return nil, b.InvalidInput("file", "%v", err)
	}

	records := make([]any, 0, len(rows))
	if !b.Config().Bool("header", true) {
		for _, row := range rows {
			records = append(records, toAnySlice(row))
		}
		return records, nil
	}
	if len(rows) == 0 {
		return records, nil
	}
	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func toAnySlice(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
