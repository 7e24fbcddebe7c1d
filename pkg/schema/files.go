package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var baseFS fs.FS

// SetBaseFS makes ReadFiles read from fsys, typically an embed.FS. nil
// restores the OS filesystem.
func SetBaseFS(fsys fs.FS) {
	baseFS = fsys
}

// modelFile is the on-disk declaration of one model
type modelFile struct {
	Name   string `json:"name"`
	Fields []struct {
		Name      string     `json:"name"`
		Type      NativeType `json:"type"`
		MaxLength int        `json:"max_length"`
	} `json:"fields"`
}

// ParseModel parses a JSON model declaration:
//
//	{"name": "Book", "fields": [{"name": "title", "type": "string", "max_length": 64}]}
func ParseModel(data []byte) (*Model, error) {
	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	defs := make([]FieldDef, 0, len(mf.Fields))
	for _, f := range mf.Fields {
		defs = append(defs, Def(f.Name, Field{Type: f.Type, MaxLength: f.MaxLength}))
	}
	return Define(mf.Name, defs...)
}

// ReadFiles loads every .json model file under dir, in path order
func ReadFiles(dir string) ([]*Model, error) {
	fsys, root := baseFS, dir
	if fsys == nil {
		fsys, root = os.DirFS(dir), "."
	}

	var paths []string
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list model files in %s: %w", dir, err)
	}
	slices.Sort(paths)

	models := make([]*Model, 0, len(paths))
	for _, path := range paths {
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		m, err := ParseModel(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		models = append(models, m)
	}
	return models, nil
}
