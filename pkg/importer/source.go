package importer

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/goliatone/go-formwizard/internal/loader"
)

// Source identifies where a schema document comes from so the importer can
// read files, fs.FS entries, URLs or pasted text alike.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the import modalities.
type SourceKind string

const (
	SourceKindFile SourceKind = SourceKind(loader.KindFile)
	SourceKindFS   SourceKind = SourceKind(loader.KindFS)
	SourceKindURL  SourceKind = SourceKind(loader.KindURL)
	SourceKindText SourceKind = "text"
)

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }
func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	name string
}

func (s fsSource) Location() string { return s.name }
func (s fsSource) Kind() SourceKind { return SourceKindFS }

// SourceFromFS returns a Source identifying a resource inside the importer's
// fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

type urlSource struct {
	raw string
}

func (s urlSource) Location() string { return s.raw }
func (s urlSource) Kind() SourceKind { return SourceKindURL }

// SourceFromURL validates raw and returns a Source for it.
func SourceFromURL(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("importer: empty URL source")
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("importer: invalid URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("importer: unsupported URL scheme %q", parsed.Scheme)
	}
	return urlSource{raw: raw}, nil
}

// textSource carries a pasted document inline.
type textSource struct {
	text string
}

func (s textSource) Location() string { return "text" }
func (s textSource) Kind() SourceKind { return SourceKindText }

// SourceFromText wraps a pasted document.
func SourceFromText(text string) Source {
	return textSource{text: text}
}
