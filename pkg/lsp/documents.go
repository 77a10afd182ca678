package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/walteh/atncomplete/pkg/completion"
	"github.com/walteh/atncomplete/pkg/language"
)

// Document represents a text document with its metadata
type Document struct {
	URI        string
	Path       string
	LanguageID string
	Version    int32
	Content    string

	Language  *language.Definition
	Scheduler *completion.Scheduler
}

// withContent returns a copy of d holding new text. Documents in the store
// are never mutated so handlers can read them without locking.
func (d *Document) withContent(version int32, text string) *Document {
	cp := *d
	cp.Version = version
	cp.Content = text
	return &cp
}

// DocumentManager handles document operations
type DocumentManager struct {
	store *sync.Map // map[string]*Document
	fs    afero.Fs
}

func NewDocumentManager(fs afero.Fs) *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
		fs:    fs,
	}
}

// Get returns the open document for uri. A document that was never opened is
// read from the filesystem but not stored.
func (m *DocumentManager) Get(uri string) (*Document, bool) {
	if doc, ok := m.GetNoFallback(uri); ok {
		return doc, true
	}

	path := uriToPath(uri)
	content, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return nil, false
	}
	return &Document{
		URI:     normalizeURI(uri),
		Path:    path,
		Content: string(content),
	}, true
}

func (m *DocumentManager) GetNoFallback(uri string) (*Document, bool) {
	content, ok := m.store.Load(normalizeURI(uri))
	if !ok {
		return nil, false
	}
	return content.(*Document), true
}

func (m *DocumentManager) Store(doc *Document) {
	m.store.Store(normalizeURI(doc.URI), doc)
}

func (m *DocumentManager) Delete(uri string) {
	m.store.Delete(normalizeURI(uri))
}

// Len reports the number of open documents.
func (m *DocumentManager) Len() int {
	n := 0
	m.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// normalizeURI gives every spelling of a file URI the same key.
func normalizeURI(uri string) string {
	if strings.HasPrefix(uri, "file:") {
		return "file://" + uriToPath(uri)
	}
	return uri
}

// uriToPath converts a file URI to a clean path. Anything else is returned
// unchanged.
func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file:") {
		return uri
	}
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Path == "" {
		return filepath.Clean(strings.TrimPrefix(strings.TrimPrefix(uri, "file://"), "file:"))
	}
	return filepath.Clean(parsed.Path)
}
