// Package http provides HTTP server and handler implementations.
//
// This file holds the helpers that read query parameters and request bodies.
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rendita/internal/core"
)

// maxBodyBytes bounds mutation payloads.
const maxBodyBytes = 64 << 10

// ParseHorizon reads the horizon query parameter. Values not on the horizon
// menu fall back to def.
func ParseHorizon(query url.Values, def int) int {
	v := strings.TrimSpace(query.Get("horizon"))
	if v == "" {
		return def
	}
	days, err := strconv.Atoi(v)
	if err != nil || !core.IsHorizon(days) {
		return def
	}
	return days
}

// ParseCapitalOnly reports whether the capital-only projection was requested,
// either as mode=capital or capitalOnly=true.
func ParseCapitalOnly(query url.Values) bool {
	if strings.EqualFold(strings.TrimSpace(query.Get("mode")), "capital") {
		return true
	}
	b, _ := strconv.ParseBool(query.Get("capitalOnly"))
	return b
}

// formatInput renders a number for an <input> value without rounding or grouping.
func formatInput(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
