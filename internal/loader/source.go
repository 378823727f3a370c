package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/types"
)

// Format selects the on-disk/over-the-wire encoding of class documents.
type Format string

const (
	// FormatJSONP wraps each document in a callback call, e.g.
	// Ext.data.JsonP.Ext_Panel({...});
	FormatJSONP Format = "jsonp"
	// FormatJSON stores plain JSON documents.
	FormatJSON Format = "json"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSONP, "":
		return FormatJSONP, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown document format %q (supported: jsonp, json)", s)
	}
}

// Extension returns the file extension documents use.
func (f Format) Extension() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".js"
}

// CallbackName is the JSONP callback a class document is wrapped in.
func CallbackName(class string) string {
	return strings.ReplaceAll(class, ".", "_")
}

// classFile returns the relative path of a class document.
func classFile(name string, format Format) string {
	return "classes/" + name + format.Extension()
}

// validClassName rejects names that could escape the classes directory.
func validClassName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\?#%`) {
		return false
	}
	return !strings.Contains(name, "..")
}

// unwrapPayload strips a JSONP callback or a `Docs.data = ...;` assignment
// and returns the JSON object inside.
func unwrapPayload(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed, nil
	}

	start := bytes.IndexByte(trimmed, '{')
	end := bytes.LastIndexByte(trimmed, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in payload")
	}
	return trimmed[start : end+1], nil
}

func decodeClass(name string, body []byte) (*types.ClassDocument, error) {
	payload, err := unwrapPayload(body)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeDecodeFailed, "invalid class document", err).WithClass(name)
	}

	var doc types.ClassDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeDecodeFailed, "invalid class document", err).WithClass(name)
	}
	if doc.Name == "" {
		doc.Name = name
	}
	return &doc, nil
}

// DecodeIndex parses a class index in JSON or `Docs.data = {...};` form.
func DecodeIndex(body []byte) (*types.ClassIndex, error) {
	payload, err := unwrapPayload(body)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeDecodeFailed, "invalid class index", err)
	}

	var index types.ClassIndex
	if err := json.Unmarshal(payload, &index); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeDecodeFailed, "invalid class index", err)
	}
	return &index, nil
}
