package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// entryFile is the YAML document shape.
type entryFile struct {
	Entries []ir.Entry `yaml:"entries"`
}

// ParseYAML decodes a YAML entry file. Unknown fields are rejected so typos
// in content surface at load time.
func ParseYAML(data []byte, filename string) ([]ir.Entry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f entryFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &LoadError{Code: ErrCodeParse, File: filename, Message: fmt.Sprintf("parse YAML: %v", err)}
	}
	return f.Entries, nil
}
