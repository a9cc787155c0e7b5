// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the expense form, which may arrive form-encoded (htmx) or as JSON, and the
// dashboard query parameters.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gastos/internal/core"
	"gastos/internal/report"
)

// maxBodyBytes bounds what a single expense submission may carry.
const maxBodyBytes = 64 << 10

// ExpenseInputFrom reads the expense fields from a parsed body.
func ExpenseInputFrom(p *RequestBodyParser) core.ExpenseInput {
	return core.ExpenseInput{
		Date:     p.Get("date"),
		Amount:   p.Get("amount"),
		Category: p.Get("category"),
		Payer:    p.Get("payer"),
		Payment:  p.Get("payment"),
		Note:     p.Get("note"),
	}
}

// SummaryParams holds the dashboard query.
type SummaryParams struct {
	Scope report.Scope
	Sort  report.SortKey
	Desc  bool
}

// ParseSummaryParams reads scope, sort and dir, falling back to the current
// month sorted by date, newest first.
func ParseSummaryParams(query url.Values) SummaryParams {
	p := SummaryParams{
		Scope: report.ParseScope(query.Get("scope")),
		Sort:  report.ParseSortKey(query.Get("sort")),
		Desc:  true,
	}
	if strings.EqualFold(strings.TrimSpace(query.Get("dir")), "asc") {
		p.Desc = false
	}
	return p
}

// SortedBy returns the query for a click on column key: the active column
// flips direction, any other starts descending.
func (p SummaryParams) SortedBy(key report.SortKey) SummaryParams {
	if p.Sort == key {
		p.Desc = !p.Desc
		return p
	}
	p.Sort, p.Desc = key, true
	return p
}

func (p SummaryParams) WithScope(s report.Scope) SummaryParams {
	p.Scope = s
	return p
}

// Query renders p back into a query string.
func (p SummaryParams) Query() string {
	v := url.Values{}
	v.Set("scope", p.Scope.String())
	v.Set("sort", string(p.Sort))
	if p.Desc {
		v.Set("dir", "desc")
	} else {
		v.Set("dir", "asc")
	}
	return v.Encode()
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
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

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
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

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
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

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
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
