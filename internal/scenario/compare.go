package scenario

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/zeebo/blake3"
)

// ignoredFields never take part in comparisons: the first three change on
// every run, the icon fields exist only in the local editor.
var ignoredFields = map[string]bool{
	"lastRun":   true,
	"runCount":  true,
	"error":     true,
	"iconsThen": true,
	"iconsIf":   true,
}

// Compare reports whether two scenarios are equal once runtime-only and
// local-only fields are removed. BLOCK data is compared as parsed JSON.
func Compare(local, remote *Scenario) bool {
	return reflect.DeepEqual(normalize(local), normalize(remote))
}

// FieldDiff is one top-level field that differs.
type FieldDiff struct {
	Field  string          `json:"field"`
	Local  json.RawMessage `json:"local,omitempty"`
	Remote json.RawMessage `json:"remote,omitempty"`
}

// DiffReport lists the differences between a local and a remote scenario.
type DiffReport struct {
	Index  string      `json:"index"`
	Name   string      `json:"name,omitempty"`
	Equal  bool        `json:"equal"`
	Fields []FieldDiff `json:"fields,omitempty"`
	// Blocks holds the ids of BLOCK code blocks whose code differs or that
	// exist on one side only.
	Blocks []string `json:"blocks,omitempty"`
}

// Diff compares local against remote field by field.
func Diff(local, remote *Scenario) *DiffReport {
	report := &DiffReport{Index: local.Index(), Name: local.Name()}
	l, r := normalize(local), normalize(remote)

	keys := make(map[string]bool)
	for k := range l {
		keys[k] = true
	}
	for k := range r {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		if reflect.DeepEqual(l[k], r[k]) {
			continue
		}
		lv, _ := local.fields.Get(k)
		rv, _ := remote.fields.Get(k)
		report.Fields = append(report.Fields, FieldDiff{Field: k, Local: lv, Remote: rv})
		if k == "data" && local.RawType() == string(TypeBlock) {
			report.Blocks = blockDiff(local, remote)
		}
	}
	report.Equal = len(report.Fields) == 0
	return report
}

func blockDiff(local, remote *Scenario) []string {
	l, r := blockCode(local), blockCode(remote)
	var ids []string
	for id, code := range l {
		if other, ok := r[id]; !ok || other != code {
			ids = append(ids, id)
		}
	}
	for id := range r {
		if _, ok := l[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// blockCode maps block id to code for the code targets of a BLOCK scenario.
func blockCode(s *Scenario) map[string]string {
	out := make(map[string]string)
	data, err := s.DataString()
	if err != nil {
		return out
	}
	doc, err := ParseObject([]byte(data))
	if err != nil {
		return out
	}
	targets, err := targetList(doc)
	if err != nil {
		return out
	}
	for _, raw := range targets {
		target, err := ParseObject(raw)
		if err != nil {
			continue
		}
		if typ, _ := target.String("type"); typ != "code" {
			continue
		}
		idRaw, _ := target.Get("blockId")
		id, err := blockIDText(idRaw)
		if err != nil {
			continue
		}
		out[id], _ = target.String("code")
	}
	return out
}

// Fingerprint hashes the normalized scenario with BLAKE3. Equal scenarios
// under Compare have equal fingerprints.
func Fingerprint(s *Scenario) string {
	canonical, _ := json.Marshal(normalize(s))
	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func normalize(s *Scenario) map[string]interface{} {
	out := make(map[string]interface{})
	for _, k := range s.fields.Keys() {
		if ignoredFields[k] {
			continue
		}
		raw, _ := s.fields.Get(k)
		out[k] = decodeValue(raw)
	}
	if s.RawType() == string(TypeBlock) {
		if data, err := s.DataString(); err == nil {
			if v, ok := tryDecode([]byte(data)); ok {
				out["data"] = v
			}
		}
	}
	return out
}

func decodeValue(raw json.RawMessage) interface{} {
	if v, ok := tryDecode(raw); ok {
		return v
	}
	return string(raw)
}

func tryDecode(data []byte) (interface{}, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}
