// Package svg serializes composed documents as SVG using an xmlquery node tree.
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/antchfx/xmlquery"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// Encoder writes documents as indented SVG with an XML declaration.
type Encoder struct {
	indent string
}

// NewEncoder creates an Encoder. An empty indent writes one element per line
// without indentation.
func NewEncoder(indent string) *Encoder {
	return &Encoder{indent: indent}
}

// Encode serializes doc.
func (e *Encoder) Encode(doc *domain.Document) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("encode: empty document")
	}
	var buf bytes.Buffer
	if err := writeNode(&buf, Tree(doc), 0, e.indent); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Tree converts doc into an xmlquery document node.
func Tree(doc *domain.Document) *xmlquery.Node {
	root := &xmlquery.Node{Type: xmlquery.DocumentNode}
	decl := &xmlquery.Node{Type: xmlquery.DeclarationNode, Data: "xml"}
	xmlquery.AddAttr(decl, "version", "1.0")
	xmlquery.AddAttr(decl, "encoding", "UTF-8")
	xmlquery.AddChild(root, decl)
	xmlquery.AddChild(root, element(doc.Root))
	return root
}

func element(el *domain.Element) *xmlquery.Node {
	n := &xmlquery.Node{Type: xmlquery.ElementNode, Data: el.Name}
	for _, a := range el.Attrs {
		xmlquery.AddAttr(n, a.Name, a.Value)
	}
	for _, c := range el.Children {
		xmlquery.AddChild(n, element(c))
	}
	return n
}

func writeNode(w *bytes.Buffer, n *xmlquery.Node, depth int, indent string) error {
	switch n.Type {
	case xmlquery.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if err := writeNode(w, child, depth, indent); err != nil {
				return err
			}
		}

	case xmlquery.DeclarationNode:
		w.WriteString("<?xml")
		for _, attr := range n.Attr {
			w.WriteString(" ")
			w.WriteString(attr.Name.Local)
			w.WriteString(`="`)
			if err := xml.EscapeText(w, []byte(attr.Value)); err != nil {
				return err
			}
			w.WriteString(`"`)
		}
		w.WriteString("?>\n")

	case xmlquery.ElementNode:
		writeIndent(w, depth, indent)
		w.WriteString("<")
		w.WriteString(n.Data)
		for _, attr := range n.Attr {
			w.WriteString(" ")
			if attr.Name.Space != "" {
				w.WriteString(attr.Name.Space)
				w.WriteString(":")
			}
			w.WriteString(attr.Name.Local)
			w.WriteString(`="`)
			if err := xml.EscapeText(w, []byte(attr.Value)); err != nil {
				return err
			}
			w.WriteString(`"`)
		}

		if n.FirstChild == nil {
			w.WriteString("/>\n")
			return nil
		}
		w.WriteString(">\n")
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if err := writeNode(w, child, depth+1, indent); err != nil {
				return err
			}
		}
		writeIndent(w, depth, indent)
		w.WriteString("</")
		w.WriteString(n.Data)
		w.WriteString(">\n")
	}
	return nil
}

func writeIndent(w *bytes.Buffer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}

// WriteFile writes data to path through a temporary file in the same
// directory, creating the directory if needed.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".osm2svg-*.svg")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
