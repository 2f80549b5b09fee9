package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hubctl/hubctl/internal/atomicfile"
)

// Files of an extracted scenario directory.
const (
	FileMetadata = "metadata.json"
	FileData     = "data.json"
	FileCode     = "code.js"
	FileBackup   = "backup.json"
)

// MissingFileError reports a file an extracted directory should contain.
type MissingFileError struct {
	Dir  string
	Name string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing %s in %s", e.Name, e.Dir)
}

// IntegrityError reports an extracted directory that cannot be turned back
// into a valid scenario.
type IntegrityError struct {
	Dir string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dir, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Extract writes s into dir, replacing whatever the directory held. The
// directory is swapped in only after every file was written.
func Extract(s *Scenario, dir string, format Format) error {
	files, err := Files(s, format)
	if err != nil {
		return err
	}
	return atomicfile.ReplaceDir(dir, files, 0o644)
}

// Files renders the extracted files of s, keyed by file name.
func Files(s *Scenario, format Format) (map[string][]byte, error) {
	typ, err := s.Type()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Index(), err)
	}
	data, err := s.DataString()
	if err != nil {
		return nil, err
	}

	backup, err := s.fields.Indented()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Index(), err)
	}
	files := map[string][]byte{FileBackup: backup}
	meta := s.fields.Clone()

	if typ.Textual() {
		files[FileCode] = []byte(data)
		meta.Set("data", placeholder{kind: kindCode}.encode(format))
	} else {
		doc, blocks, err := extractBlocks([]byte(data), format)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Index(), err)
		}
		if files[FileData], err = doc.Indented(); err != nil {
			return nil, err
		}
		for name, code := range blocks {
			files[name] = code
		}
		meta.Set("data", placeholder{kind: kindData}.encode(format))
	}

	if files[FileMetadata], err = meta.Indented(); err != nil {
		return nil, err
	}
	return files, nil
}

// extractBlocks moves the code of every code target into its own file and
// leaves a placeholder behind.
func extractBlocks(data []byte, format Format) (*Object, map[string][]byte, error) {
	doc, err := ParseObject(data)
	if err != nil {
		return nil, nil, fmt.Errorf("BLOCK data: %w", err)
	}
	targets, err := targetList(doc)
	if err != nil {
		return nil, nil, err
	}

	blocks := make(map[string][]byte)
	for i, raw := range targets {
		target, err := ParseObject(raw)
		if err != nil {
			continue
		}
		if typ, _ := target.String("type"); typ != "code" {
			continue
		}
		idRaw, ok := target.Get("blockId")
		if !ok {
			return nil, nil, fmt.Errorf("code target %d has no blockId", i)
		}
		id, err := blockIDText(idRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("code target %d: %w", i, err)
		}
		name := BlockFileName(id)
		if _, dup := blocks[name]; dup {
			return nil, nil, fmt.Errorf("duplicate blockId %s", id)
		}
		code, ok := target.String("code")
		if !ok {
			return nil, nil, fmt.Errorf("block %s: code is not a string", id)
		}

		blocks[name] = []byte(code)
		target.Set("code", placeholder{kind: kindBlock, blockID: id, blockIDRaw: compactJSON(idRaw)}.encode(format))
		if targets[i], err = target.MarshalJSON(); err != nil {
			return nil, nil, err
		}
	}
	doc.Set("targets", encodeArray(targets))
	return doc, blocks, nil
}

// Inject reads an extracted directory back into a scenario ready for
// upload. It never writes to dir.
func Inject(dir string) (*Scenario, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}
	typ, err := meta.Type()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	dataRaw, ok := meta.Data()
	if !ok {
		return nil, &IntegrityError{Dir: dir, Err: fmt.Errorf("%s has no data field", FileMetadata)}
	}
	legacy := isLegacySentinel(dataRaw)

	var data string
	if p, ok := decodePlaceholder(dataRaw, legacy); ok {
		switch p.kind {
		case kindData:
			content, err := readFile(dir, FileData)
			if err != nil {
				return nil, err
			}
			data = string(content)
		case kindCode:
			if !typ.Textual() {
				return nil, &IntegrityError{Dir: dir, Err: fmt.Errorf("code placeholder in a %s scenario", typ)}
			}
			content, err := readFile(dir, FileCode)
			if err != nil {
				return nil, err
			}
			data = string(content)
		default:
			return nil, &IntegrityError{Dir: dir, Err: fmt.Errorf("block placeholder in %s data field", FileMetadata)}
		}
	} else if data, err = meta.DataString(); err != nil {
		return nil, &IntegrityError{Dir: dir, Err: err}
	}

	if typ == TypeBlock {
		if data, err = injectBlocks(dir, data, legacy); err != nil {
			return nil, err
		}
	}
	meta.fields.SetString("data", data)
	return meta, nil
}

// injectBlocks restores the code of every block placeholder from its file
// and returns the compact data string.
func injectBlocks(dir, data string, legacy bool) (string, error) {
	doc, err := ParseObject([]byte(data))
	if err != nil {
		return "", &IntegrityError{Dir: dir, Err: fmt.Errorf("BLOCK data: %w", err)}
	}
	targets, err := targetList(doc)
	if err != nil {
		return "", &IntegrityError{Dir: dir, Err: err}
	}

	for i, raw := range targets {
		target, err := ParseObject(raw)
		if err != nil {
			continue
		}
		codeRaw, ok := target.Get("code")
		if !ok {
			continue
		}
		p, ok := decodePlaceholder(codeRaw, legacy)
		if !ok || p.kind != kindBlock {
			continue
		}
		idRaw, _ := target.Get("blockId")
		id, err := blockIDText(idRaw)
		if err != nil || id != p.blockID {
			return "", &IntegrityError{Dir: dir, Err: fmt.Errorf("target %d: placeholder for block %s does not match its blockId", i, p.blockID)}
		}
		code, err := readFile(dir, BlockFileName(id))
		if err != nil {
			return "", err
		}
		target.SetString("code", string(code))
		if targets[i], err = target.MarshalJSON(); err != nil {
			return "", &IntegrityError{Dir: dir, Err: err}
		}
	}
	doc.Set("targets", encodeArray(targets))

	out, err := doc.MarshalJSON()
	if err != nil || !json.Valid(out) {
		return "", &IntegrityError{Dir: dir, Err: fmt.Errorf("reassembled BLOCK data is not valid JSON")}
	}
	return string(out), nil
}

// ReadMetadata parses metadata.json of an extracted directory, placeholders
// included.
func ReadMetadata(dir string) (*Scenario, error) {
	raw, err := readFile(dir, FileMetadata)
	if err != nil {
		return nil, err
	}
	meta, err := Parse(raw)
	if err != nil {
		return nil, &IntegrityError{Dir: dir, Err: fmt.Errorf("%s: %w", FileMetadata, err)}
	}
	return meta, nil
}

// HasExtractedCode reports whether dir holds an extracted scenario: a
// metadata.json alongside data.json, or whose data field is a placeholder.
func HasExtractedCode(dir string) bool {
	raw, err := os.ReadFile(filepath.Join(dir, FileMetadata))
	if err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(dir, FileData)); err == nil {
		return true
	}
	obj, err := ParseObject(raw)
	if err != nil {
		return false
	}
	data, ok := obj.Get("data")
	if !ok {
		return false
	}
	p, ok := decodePlaceholder(data, true)
	return ok && p.kind != kindBlock
}

// DetectFormat reports the format dir was extracted in. Directories that
// cannot be read count as current.
func DetectFormat(dir string) Format {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return FormatCurrent
	}
	if data, ok := meta.Data(); ok && isLegacySentinel(data) {
		return FormatLegacy
	}
	return FormatCurrent
}

func targetList(doc *Object) ([]json.RawMessage, error) {
	raw, ok := doc.Get("targets")
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, fmt.Errorf("BLOCK data has no targets array")
	}
	var targets []json.RawMessage
	if err := json.Unmarshal(raw, &targets); err != nil {
		return nil, fmt.Errorf("BLOCK targets: %w", err)
	}
	return targets, nil
}

func encodeArray(items []json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(item)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

func readFile(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, &MissingFileError{Dir: dir, Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
