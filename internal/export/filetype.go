package export

import (
	"fmt"
	"strings"

	"github.com/five82/logsift/internal/logentry"
)

// FileType is an export target format. Each type carries its extension,
// description and renderer; see fileTypeSpecs.
type FileType int

const (
	FileTypeLog FileType = iota
	FileTypeJSON
	// FileTypeMarkdown is the plain-text export, written as Markdown.
	FileTypeMarkdown
	FileTypeText
	FileTypeCSV
)

type renderFunc func(f Formatter, records []logentry.Record) ([]byte, error)

type fileTypeSpec struct {
	name        string
	extension   string
	description string
	render      renderFunc
}

// The extension and description columns are relied on by external tools;
// keep them stable.
var fileTypeSpecs = map[FileType]fileTypeSpec{
	FileTypeLog:      {name: "log", extension: "log", description: "Log file", render: renderLog},
	FileTypeJSON:     {name: "json", extension: "json", description: "JSON", render: renderJSON},
	FileTypeMarkdown: {name: "markdown", extension: "md", description: "Markdown", render: renderMarkdown},
	FileTypeText:     {name: "text", extension: "txt", description: "Text file", render: renderText},
	FileTypeCSV:      {name: "csv", extension: "csv", description: "CSV", render: renderCSV},
}

var fileTypeOrder = []FileType{FileTypeLog, FileTypeJSON, FileTypeMarkdown, FileTypeText, FileTypeCSV}

// FileTypes returns every export type in picker order.
func FileTypes() []FileType {
	return append([]FileType(nil), fileTypeOrder...)
}

// Extension returns the file extension without the leading dot.
func (t FileType) Extension() string {
	return fileTypeSpecs[t].extension
}

// Description returns the human label shown in pickers.
func (t FileType) Description() string {
	return fileTypeSpecs[t].description
}

// String returns the config name of the type.
func (t FileType) String() string {
	if spec, ok := fileTypeSpecs[t]; ok {
		return spec.name
	}
	return fmt.Sprintf("FileType(%d)", int(t))
}

// Next returns the following type in picker order.
func (t FileType) Next() FileType {
	for i, candidate := range fileTypeOrder {
		if candidate == t {
			return fileTypeOrder[(i+1)%len(fileTypeOrder)]
		}
	}
	return fileTypeOrder[0]
}

// ParseFileType accepts a type name, an extension (with or without the dot)
// or a description.
func ParseFileType(value string) (FileType, error) {
	needle := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), ".")
	switch needle {
	case "plaintext", "plain", "plain-text":
		return FileTypeMarkdown, nil
	case "txt":
		return FileTypeText, nil
	}
	for _, t := range fileTypeOrder {
		spec := fileTypeSpecs[t]
		if needle == spec.name || needle == spec.extension || needle == strings.ToLower(spec.description) {
			return t, nil
		}
	}
	return FileTypeLog, fmt.Errorf("unknown export type %q", value)
}
