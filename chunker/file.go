// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chunker

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/hybridrag/core"
)

// File is a named document to be chunked.
type File struct {
	// Name is used for format detection and chunk titles.
	Name string
	Data []byte
}

// ReadFile loads a file from disk. The chunk titles use the base name.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// Format is a supported document type.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

// DetectFormat maps a file name onto a Format by extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return FormatText, nil
	case ".pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, name)
}

// Supported reports whether name has an extension Process can handle.
func Supported(name string) bool {
	_, err := DetectFormat(name)
	return err == nil
}

func extractText(file File) (string, error) {
	format, err := DetectFormat(file.Name)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatPDF:
		return readPDF(file.Data)
	default:
		return readText(file.Data)
	}
}

func readText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", core.ErrDecode)
	}
	return string(data), nil
}

// readPDF concatenates the plain text of every page.
// The pdf package panics on some malformed inputs; those surface as ErrDecode.
func readPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed PDF: %v", core.ErrDecode, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	return buf.String(), nil
}
