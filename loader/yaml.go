package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/momo-AUX1/craby/model"
)

var log = commonlog.GetLogger("craby.loader")

// documentExts are the file extensions LoadSchemas picks up.
var documentExts = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// LoadSchema reads a JSON or YAML module document, validates it against the
// JSON Schema and builds the module Schema.
func LoadSchema(path string) (*model.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module schema: %w", err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("loaded module %s from %s (%d methods, %d signals)", s.ModuleName, path, len(s.Methods), len(s.Signals))
	return s, nil
}

// ParseSchema validates and builds a module document held in memory.
func ParseSchema(data []byte) (*model.Schema, error) {
	raw, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if err := validateValue(raw); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	// Round-trip through JSON so YAML and JSON documents share one decoder.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing document: %w", err)
	}
	var doc model.Document
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("parsing module document: %w", err)
	}
	return doc.Build()
}

// LoadSchemas loads every module document in dir, ordered by file name.
// A directory without documents is an error.
func LoadSchemas(dir string) ([]*model.Schema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema directory: %w", err)
	}

	var schemas []*model.Schema
	for _, e := range entries {
		if e.IsDir() || !documentExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		s, err := LoadSchema(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("no module schemas found in %s", dir)
	}
	return schemas, nil
}
