package reader

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ancillary file kinds.
const (
	KindProjection = "projection"
	KindEncoding   = "encoding"
	KindMetadata   = "metadata"
)

// AncillaryFile is an optional file of a shapefile bundle, exposed verbatim.
// XML metadata documents are also parsed into a generic element tree.
type AncillaryFile struct {
	Name       string   `json:"name" yaml:"name"`
	Kind       string   `json:"kind" yaml:"kind"`
	Text       string   `json:"text" yaml:"text"`
	Document   *XMLNode `json:"document,omitempty" yaml:"-"`
	ParseError string   `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
}

// XMLNode is one element of a parsed metadata document.
type XMLNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []XMLNode  `xml:",any"`
}

// Name returns the local element name.
func (n *XMLNode) Name() string { return n.XMLName.Local }

// Text returns the trimmed character data of the element.
func (n *XMLNode) Text() string { return strings.TrimSpace(n.Content) }

// Find returns the first descendant reached by following local element names.
func (n *XMLNode) Find(path ...string) *XMLNode {
	cur := n
	for _, name := range path {
		var next *XMLNode
		for i := range cur.Nodes {
			if cur.Nodes[i].Name() == name {
				next = &cur.Nodes[i]
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// MarshalJSON encodes the element as {name, attrs, text, children}.
func (n *XMLNode) MarshalJSON() ([]byte, error) {
	type node struct {
		Name     string            `json:"name"`
		Attrs    map[string]string `json:"attrs,omitempty"`
		Text     string            `json:"text,omitempty"`
		Children []*XMLNode        `json:"children,omitempty"`
	}

	out := node{Name: n.Name(), Text: n.Text()}
	if len(n.Attrs) > 0 {
		out.Attrs = make(map[string]string, len(n.Attrs))
		for _, a := range n.Attrs {
			out.Attrs[a.Name.Local] = a.Value
		}
	}
	for i := range n.Nodes {
		out.Children = append(out.Children, &n.Nodes[i])
	}

	return json.Marshal(out)
}

// AncillaryMetadata returns the projection, encoding and XML metadata files found
// in dir, keyed by file name. Content is not validated against the geometry.
func AncillaryMetadata(dir string) (map[string]AncillaryFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &SourceUnavailableError{Source: dir, Err: err}
	}

	out := make(map[string]AncillaryFile)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		var kind string
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ExtPrj:
			kind = KindProjection
		case ExtCpg:
			kind = KindEncoding
		case ExtXML:
			kind = KindMetadata
		default:
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &SourceUnavailableError{Source: path, Err: err}
		}

		f := AncillaryFile{Name: e.Name(), Kind: kind, Text: string(data)}
		if kind == KindMetadata {
			var root XMLNode
			if err := xml.Unmarshal(data, &root); err != nil {
				f.ParseError = err.Error()
			} else {
				f.Document = &root
			}
		}

		out[e.Name()] = f
	}

	return out, nil
}

// AncillaryNames returns the keys of files in a stable order.
func AncillaryNames(files map[string]AncillaryFile) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
