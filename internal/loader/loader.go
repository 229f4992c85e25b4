// Package loader reads entry definitions from disk.
//
// A content directory may mix YAML files (.yaml, .yml) and CUE files
// (.cue). Files are read in lexical path order and their entries are
// concatenated in that order, so declaration order is stable across runs.
//
// YAML files hold a top-level entries list:
//
//	entries:
//	  - id: greet
//	    kind: trigger
//	    triggers: [hello]
//
// CUE files hold an entry struct keyed by id:
//
//	entry: greet: {
//		kind:     "trigger"
//		triggers: ["hello"]
//	}
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/token"

	"github.com/ahdg6/TypeWriter/internal/graph"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

// Error codes.
const (
	ErrCodeGeneric   = "E001" // generic/unknown error
	ErrCodeScanError = "E002" // directory scan error
	ErrCodeNoFiles   = "E003" // no entry files found
	ErrCodeParse     = "E004" // file failed to parse
	ErrCodeNotFound  = "E005" // path not found
	ErrCodeBuild     = "E006" // CUE value failed to build
	ErrCodeEntry     = "E007" // entry shape invalid
)

// LoadError is a loading failure with an optional source position.
type LoadError struct {
	Code    string
	File    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Result is the outcome of LoadDir.
type Result struct {
	Entries []ir.Entry
	Files   []string
}

// LoadDir reads every entry file under dir.
// It stops at the first file that fails to parse.
func LoadDir(dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("entries directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing entries directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindEntryFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no entry files found in %s", dir)}
	}

	result := &Result{Files: files}
	for _, path := range files {
		entries, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entries...)
	}
	return result, nil
}

// LoadFile reads one YAML or CUE file.
func LoadFile(path string) ([]ir.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, File: path, Message: err.Error()}
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	case ".cue":
		return ParseCUE(data, path)
	default:
		return nil, &LoadError{Code: ErrCodeGeneric, File: path, Message: "unsupported file extension"}
	}
}

// LoadGraph loads dir and builds the entry graph.
// Warnings are returned alongside a usable graph; errors refuse the build.
func LoadGraph(dir string) (*graph.Graph, []graph.Issue, error) {
	res, err := LoadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	return graph.New(res.Entries)
}

// FindEntryFiles walks dir and returns every .yaml, .yml and .cue path,
// sorted.
func FindEntryFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml", ".cue":
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
