// Package providers supplies dynamic field suggestions from data the grammar
// knows nothing about: sample documents and protobuf schemas.
package providers

import (
	"context"
	"strings"

	"github.com/spf13/afero"
	"github.com/walteh/atncomplete/pkg/completion"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

var _ completion.Provider = (*SampleProvider)(nil)

// SampleProvider suggests the keys of a sample YAML or JSON document. Paths
// descend through mappings; a sequence stands for its first element.
type SampleProvider struct {
	name string
	root *yaml.Node
}

// NewSampleProvider parses data as YAML. JSON documents are accepted too.
func NewSampleProvider(name string, data []byte) (*SampleProvider, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Errorf("parsing sample %s: %w", name, err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	return &SampleProvider{name: name, root: root}, nil
}

// LoadSampleProvider reads a sample document from fs.
func LoadSampleProvider(fs afero.Fs, path string) (*SampleProvider, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading sample: %w", err)
	}
	return NewSampleProvider(path, data)
}

func (p *SampleProvider) Name() string {
	return p.name
}

// Suggest lists the keys of the mapping at path in document order.
func (p *SampleProvider) Suggest(ctx context.Context, path []string) ([]completion.Suggestion, error) {
	node := resolveAlias(p.root)
	for i, seg := range path {
		node = elem(node)
		if node == nil || node.Kind != yaml.MappingNode {
			return nil, errors.Errorf("%s is not an object", describePath(path[:i]))
		}
		next := lookupKey(node, seg)
		if next == nil {
			return nil, errors.Errorf("no field %s in %s", seg, describePath(path[:i]))
		}
		node = next
	}

	node = elem(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, nil
	}

	items := make([]completion.Suggestion, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		items = append(items, completion.Suggestion{
			DisplayText: node.Content[i].Value,
			Kind:        completion.KindDynamicField,
			Detail:      describe(resolveAlias(node.Content[i+1])),
		})
	}
	return items, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// elem unwraps sequences to their first element.
func elem(n *yaml.Node) *yaml.Node {
	n = resolveAlias(n)
	for n != nil && n.Kind == yaml.SequenceNode {
		if len(n.Content) == 0 {
			return nil
		}
		n = resolveAlias(n.Content[0])
	}
	return n
}

func lookupKey(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolveAlias(m.Content[i+1])
		}
	}
	return nil
}

func describe(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case yaml.MappingNode:
		return "object"
	case yaml.SequenceNode:
		return "array"
	}
	switch n.ShortTag() {
	case "!!str":
		return "string"
	case "!!int", "!!float":
		return "number"
	case "!!bool":
		return "bool"
	case "!!null":
		return "null"
	}
	return n.ShortTag()
}

func describePath(path []string) string {
	if len(path) == 0 {
		return "the root"
	}
	return strings.Join(path, ".")
}
