package domain

// Attr is a single attribute of an Element. Name may carry a namespace
// prefix, e.g. "inkscape:label".
type Attr struct {
	Name  string
	Value string
}

// Element is a node of the generic output tree handed to a serializer.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []*Element
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Document is a composed drawing: its canvas, its layers in draw order and
// the element tree that represents them.
type Document struct {
	Width  float64
	Height float64
	Layers []Layer
	Root   *Element
}
