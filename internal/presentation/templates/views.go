// Package templates renders the HTML the playground writes into pages and the
// documentation page layout.
package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
)

var viewTemplates = template.Must(template.New("views").Parse(
	`{{define "error"}}<div class="xtplay-error-display" role="alert">` +
		`<h3 class="xtplay-error-title">{{.Title}}</h3>` +
		`<p class="xtplay-error-message">{{.Message}}</p>` +
		`{{if .Data}}<pre class="xtplay-error-data"><code>{{.Data}}</code></pre>{{end}}` +
		`</div>{{end}}` +

		`{{define "table"}}{{if .Rows}}<table class="xtplay-table">` +
		`<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>` +
		`<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>` +
		`</table>{{else}}<p class="xtplay-empty">No results</p>{{end}}{{end}}` +

		`{{define "json"}}<pre class="xtplay-json"><code class="language-json">{{.}}</code></pre>{{end}}`,
))

type errorData struct {
	Title   string
	Message string
	Data    string
}

type tableData struct {
	Columns []string
	Rows    [][]string
}

// Views renders playground output and error markup with html/template.
type Views struct{}

// NewViews returns the playground views.
func NewViews() Views {
	return Views{}
}

// Error renders the error display. data, when present, is shown indented.
func (Views) Error(title, message string, data json.RawMessage) string {
	d := errorData{Title: title, Message: message}
	if len(data) > 0 && string(data) != "null" {
		d.Data = indent(data)
	}
	var buf bytes.Buffer
	if err := viewTemplates.ExecuteTemplate(&buf, "error", d); err != nil {
		return template.HTMLEscapeString(title + ": " + message)
	}
	return buf.String()
}

// Table renders a result as a table. An array of objects becomes one row per
// object with columns in first-seen key order; a single object is one row;
// any other value is shown as JSON.
func (v Views) Table(body json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(body)
	var rows []json.RawMessage
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return "", fmt.Errorf("failed to decode result rows: %w", err)
		}
	case bytes.HasPrefix(trimmed, []byte("{")):
		rows = []json.RawMessage{trimmed}
	default:
		return v.JSON(body)
	}

	data := tableData{}
	index := map[string]int{}
	var parsed [][]field
	for _, raw := range rows {
		fields, err := objectFields(raw)
		if err != nil {
			return v.JSON(body)
		}
		for _, f := range fields {
			if _, seen := index[f.Key]; !seen {
				index[f.Key] = len(data.Columns)
				data.Columns = append(data.Columns, f.Key)
			}
		}
		parsed = append(parsed, fields)
	}
	for _, fields := range parsed {
		row := make([]string, len(data.Columns))
		for _, f := range fields {
			row[index[f.Key]] = cell(f.Value)
		}
		data.Rows = append(data.Rows, row)
	}

	var buf bytes.Buffer
	if err := viewTemplates.ExecuteTemplate(&buf, "table", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// JSON renders a result as indented JSON.
func (Views) JSON(body json.RawMessage) (string, error) {
	if !json.Valid(body) {
		return "", errors.New("result is not valid JSON")
	}
	var buf bytes.Buffer
	if err := viewTemplates.ExecuteTemplate(&buf, "json", indent(body)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type field struct {
	Key   string
	Value json.RawMessage
}

// objectFields decodes a JSON object keeping its key order.
func objectFields(raw json.RawMessage) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not an object")
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return fields, nil
}

// cell shows strings as-is, null as empty and anything else as compact JSON.
func cell(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	if string(value) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return string(value)
	}
	return buf.String()
}

func indent(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}
