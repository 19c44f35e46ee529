package export

import "fmt"

// Field is a labelled scalar shown in a document header.
type Field struct {
	Label string
	Value string
}

// Section is a titled table.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Document is a renderable record: header fields followed by tabular sections.
type Document struct {
	Title    string
	Fields   []Field
	Sections []Section
}

func (d Document) validate() error {
	if len(d.Fields) == 0 && len(d.Sections) == 0 {
		return fmt.Errorf("document has no content")
	}
	for _, s := range d.Sections {
		if len(s.Headers) == 0 {
			return fmt.Errorf("section %q requires at least one header", s.Title)
		}
		for i, row := range s.Rows {
			if len(row) != len(s.Headers) {
				return fmt.Errorf("section %q row %d has %d cells, want %d", s.Title, i, len(row), len(s.Headers))
			}
		}
	}
	return nil
}
