package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Format is an output format for command results.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected json, yaml or table)", s)
	}
}

// Render writes JSON result data in the given format.
func Render(w io.Writer, format Format, data json.RawMessage) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("null")
	}

	switch format {
	case FormatYAML:
		return renderYAML(w, data)
	case FormatTable:
		return renderTable(w, data)
	default:
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("render json: %w", err)
		}
		buf.WriteByte('\n')
		_, err := w.Write(buf.Bytes())
		return err
	}
}

// renderYAML parses the JSON as a YAML document, which keeps key order and
// number literals intact, then re-emits it in block style.
func renderYAML(w io.Writer, data json.RawMessage) error {
	// Indent first so every ':' is followed by a space, as YAML requires.
	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(indented.Bytes(), &node); err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}
	return enc.Close()
}

// blockStyle clears the flow and quoting styles taken from the JSON text.
// The encoder re-quotes any string that would otherwise read back as
// another type.
func blockStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		blockStyle(child)
	}
}

// renderTable renders an array of objects as rows, an object as key/value
// pairs, and anything else as plain lines.
func renderTable(w io.Writer, data json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	switch v := value.(type) {
	case []interface{}:
		if headers, ok := objectColumns(v); ok {
			rows := make([][]string, 0, len(v))
			for _, item := range v {
				obj := item.(map[string]interface{})
				row := make([]string, len(headers))
				for i, h := range headers {
					if cell, ok := obj[h]; ok {
						row[i] = cellString(cell)
					}
				}
				rows = append(rows, row)
			}
			_, err := fmt.Fprintln(w, newTable(headers, rows).Render())
			return err
		}
		for _, item := range v {
			if _, err := fmt.Fprintln(w, cellString(item)); err != nil {
				return err
			}
		}
		return nil
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, cellString(v[k])})
		}
		_, err := fmt.Fprintln(w, newTable([]string{"KEY", "VALUE"}, rows).Render())
		return err
	default:
		_, err := fmt.Fprintln(w, cellString(v))
		return err
	}
}

// objectColumns returns the sorted union of keys when every item is an object.
func objectColumns(items []interface{}) ([]string, bool) {
	if len(items) == 0 {
		return nil, false
	}
	seen := make(map[string]bool)
	var headers []string
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, false
		}
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	slices.Sort(headers)
	return headers, true
}

func newTable(headers []string, rows [][]string) *table.Table {
	headerStyle := Bold.Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(Muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		out, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(out)
	}
}
