package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultDocPath = "api/openapi.yaml"

type openAPIDoc struct {
	Paths      map[string]map[string]yaml.Node `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Format     string            `yaml:"format"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

// field describes one property a wire schema must carry.
type field struct {
	name     string
	typ      string
	format   string
	required bool
}

var wireSchemas = map[string][]field{
	"CreateRequest": {
		{name: "message", typ: "string", required: true},
	},
	"Record": {
		{name: "id", typ: "integer", required: true},
		{name: "message", typ: "string", required: true},
		{name: "created", typ: "string", format: "date-time", required: true},
	},
	"StatusResponse": {
		{name: "status", typ: "string", required: true},
	},
	"ErrorResponse": {
		{name: "error", typ: "string", required: true},
		{name: "code", typ: "string", required: true},
		{name: "requestId", typ: "string"},
	},
}

var demoMethods = []string{"get", "post", "put", "delete"}

func main() {
	path := defaultDocPath
	switch len(os.Args) {
	case 1:
	case 2:
		path = os.Args[1]
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [openapi.yaml]\n", os.Args[0])
		os.Exit(2)
	}

	doc, err := loadDoc(path)
	if err != nil {
		exitErr(err)
	}
	if err := check(doc); err != nil {
		exitErr(err)
	}
	fmt.Println("OpenAPI consistency check passed.")
}

func loadDoc(path string) (openAPIDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return openAPIDoc{}, fmt.Errorf("read %s: %w", path, err)
	}
	return parseDoc(raw)
}

func parseDoc(raw []byte) (openAPIDoc, error) {
	var doc openAPIDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse openapi: %w", err)
	}
	return doc, nil
}

func check(doc openAPIDoc) error {
	ops, ok := doc.Paths["/api/demo"]
	if !ok {
		return errors.New("paths./api/demo missing")
	}
	for _, method := range demoMethods {
		if _, ok := ops[method]; !ok {
			return fmt.Errorf("paths./api/demo.%s missing", method)
		}
	}
	if doc.Components.Schemas == nil {
		return errors.New("components.schemas missing")
	}
	for name, fields := range wireSchemas {
		s, ok := doc.Components.Schemas[name]
		if !ok {
			return fmt.Errorf("schema %q missing", name)
		}
		if err := validateSchema(name, s, fields); err != nil {
			return err
		}
	}
	return nil
}

func validateSchema(name string, s schema, fields []field) error {
	if s.Type != "object" {
		return fmt.Errorf("%s must be object", name)
	}
	required := makeSet(s.Required)
	for _, f := range fields {
		prop, ok := s.Properties[f.name]
		if !ok {
			return fmt.Errorf("%s.%s missing", name, f.name)
		}
		if prop.Type != f.typ {
			return fmt.Errorf("%s.%s must be %s, got %q", name, f.name, f.typ, prop.Type)
		}
		if f.format != "" && prop.Format != f.format {
			return fmt.Errorf("%s.%s must have format %s", name, f.name, f.format)
		}
		if f.required && !required[f.name] {
			return fmt.Errorf("%s.required must include %q", name, f.name)
		}
	}
	return nil
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
