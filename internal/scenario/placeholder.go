package scenario

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Format is the on-disk layout of an extracted scenario.
type Format int

const (
	// FormatCurrent marks extracted content with tagged objects such as
	// {"$extracted":"code"}.
	FormatCurrent Format = iota
	// FormatLegacy marks extracted content with sentinel strings such as
	// "__CODE__".
	FormatLegacy
)

func (f Format) String() string {
	if f == FormatLegacy {
		return "legacy"
	}
	return "current"
}

const (
	legacyData        = "__DATA__"
	legacyCode        = "__CODE__"
	legacyBlockPrefix = "__BLOCK_"
	legacyBlockSuffix = "__"

	tagKey     = "$extracted"
	tagBlockID = "blockId"
)

type placeholderKind string

const (
	kindData  placeholderKind = "data"
	kindCode  placeholderKind = "code"
	kindBlock placeholderKind = "block"
)

// placeholder stands in for content moved out to a separate file.
type placeholder struct {
	kind       placeholderKind
	blockID    string // block id text, only for kindBlock
	blockIDRaw json.RawMessage
}

func (p placeholder) encode(format Format) json.RawMessage {
	if format == FormatLegacy {
		switch p.kind {
		case kindData:
			return encodeString(legacyData)
		case kindCode:
			return encodeString(legacyCode)
		default:
			return encodeString(legacyBlockPrefix + p.blockID + legacyBlockSuffix)
		}
	}

	obj := NewObject()
	obj.SetString(tagKey, string(p.kind))
	if p.kind == kindBlock {
		obj.Set(tagBlockID, p.blockIDRaw)
	}
	out, _ := obj.MarshalJSON()
	return out
}

// decodePlaceholder recognizes a placeholder value. Tagged objects are
// always recognized; sentinel strings only when legacy is set.
func decodePlaceholder(raw json.RawMessage, legacy bool) (placeholder, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		obj, err := ParseObject(raw)
		if err != nil {
			return placeholder{}, false
		}
		for _, k := range obj.Keys() {
			if k != tagKey && k != tagBlockID {
				return placeholder{}, false
			}
		}
		kind, ok := obj.String(tagKey)
		if !ok {
			return placeholder{}, false
		}
		switch p := (placeholder{kind: placeholderKind(kind)}); p.kind {
		case kindData, kindCode:
			return p, !obj.Has(tagBlockID)
		case kindBlock:
			idRaw, ok := obj.Get(tagBlockID)
			if !ok {
				return placeholder{}, false
			}
			id, err := blockIDText(idRaw)
			if err != nil {
				return placeholder{}, false
			}
			p.blockID = id
			p.blockIDRaw = compactJSON(idRaw)
			return p, true
		}
		return placeholder{}, false
	}

	if !legacy {
		return placeholder{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return placeholder{}, false
	}
	switch {
	case s == legacyData:
		return placeholder{kind: kindData}, true
	case s == legacyCode:
		return placeholder{kind: kindCode}, true
	case strings.HasPrefix(s, legacyBlockPrefix) && strings.HasSuffix(s, legacyBlockSuffix) &&
		len(s) > len(legacyBlockPrefix)+len(legacyBlockSuffix):
		id := s[len(legacyBlockPrefix) : len(s)-len(legacyBlockSuffix)]
		return placeholder{kind: kindBlock, blockID: id}, true
	}
	return placeholder{}, false
}

// isLegacySentinel reports whether raw is the legacy data or code sentinel.
func isLegacySentinel(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return s == legacyData || s == legacyCode
}

var blockIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// blockIDText renders a blockId value as the text used in file names.
func blockIDText(raw json.RawMessage) (string, error) {
	var id string
	var n json.Number
	switch {
	case json.Unmarshal(raw, &id) == nil:
	case json.Unmarshal(raw, &n) == nil:
		id = n.String()
	default:
		return "", fmt.Errorf("blockId %s is not a number or string", raw)
	}
	if !blockIDPattern.MatchString(id) || id == "." || id == ".." {
		return "", fmt.Errorf("blockId %q cannot be used in a file name", id)
	}
	return id, nil
}

// BlockFileName names the file holding the code of a block.
func BlockFileName(blockID string) string {
	return "block-" + blockID + ".js"
}
