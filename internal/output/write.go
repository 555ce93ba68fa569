// Package output serializes the collection tree to disk.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"bili-tree/internal/models"
)

// Format selects the encoding of the output file.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat resolves an explicit format name, or infers one from the
// output path extension when name is empty.
func ParseFormat(name, path string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return YAML, nil
		}
		return JSON, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", name)
}

// Encode writes tree to w in the given format.
func Encode(w io.Writer, format Format, tree []models.CollectionNode) error {
	if tree == nil {
		tree = []models.CollectionNode{}
	}

	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(tree)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// Decode reads a tree previously written with Encode.
func Decode(r io.Reader, format Format) ([]models.CollectionNode, error) {
	var tree []models.CollectionNode
	switch format {
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&tree); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case JSON:
		if err := json.NewDecoder(r).Decode(&tree); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if tree == nil {
		tree = []models.CollectionNode{}
	}
	return tree, nil
}

// Read decodes the tree stored at path.
func Read(path string, format Format) ([]models.CollectionNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tree, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return tree, nil
}

// Write encodes tree into path through a temporary file in the same
// directory, renamed into place once complete.
func Write(path string, format Format, tree []models.CollectionNode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, format, tree); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("encode tree: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod tmp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}
