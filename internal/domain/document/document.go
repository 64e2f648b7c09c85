package document

import "strings"

// BlockKind identifies the structural role of a block in an office-order body
type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindHeading   BlockKind = "heading"
	KindList      BlockKind = "list"
	KindTable     BlockKind = "table"
)

// Block is one section of a document. Which fields are meaningful depends on Kind:
// paragraphs and headings use Text (headings also Level), lists use Items and
// Ordered, tables use Header and Rows.
type Block struct {
	Kind    BlockKind  `json:"kind"`
	Text    string     `json:"text,omitempty"`
	Level   int        `json:"level,omitempty"`
	Ordered bool       `json:"ordered,omitempty"`
	Items   []string   `json:"items,omitempty"`
	Header  []string   `json:"header,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}

// Document is the structured form of an office-order body
type Document struct {
	Blocks []Block `json:"blocks"`
}

// IsEmpty reports whether the document has no visible content
func (d Document) IsEmpty() bool {
	for _, b := range d.Blocks {
		switch b.Kind {
		case KindParagraph, KindHeading:
			if strings.TrimSpace(b.Text) != "" {
				return false
			}
		case KindList:
			if len(b.Items) > 0 {
				return false
			}
		case KindTable:
			if len(b.Header) > 0 || len(b.Rows) > 0 {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the document
func (d Document) Clone() Document {
	if d.Blocks == nil {
		return Document{}
	}
	blocks := make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		blocks[i] = b.clone()
	}
	return Document{Blocks: blocks}
}

// PlainText joins the text content of every block, one block per line
func (d Document) PlainText() string {
	var lines []string
	for _, b := range d.Blocks {
		switch b.Kind {
		case KindParagraph, KindHeading:
			lines = append(lines, b.Text)
		case KindList:
			lines = append(lines, b.Items...)
		case KindTable:
			if len(b.Header) > 0 {
				lines = append(lines, strings.Join(b.Header, " | "))
			}
			for _, row := range b.Rows {
				lines = append(lines, strings.Join(row, " | "))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Paragraph builds a paragraph block
func Paragraph(text string) Block {
	return Block{Kind: KindParagraph, Text: text}
}

// List builds a list block
func List(ordered bool, items ...string) Block {
	return Block{Kind: KindList, Ordered: ordered, Items: append([]string(nil), items...)}
}

// FromText builds a document with one paragraph per non-blank line
func FromText(text string) Document {
	var doc Document
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			doc.Blocks = append(doc.Blocks, Paragraph(line))
		}
	}
	return doc
}

func (b Block) clone() Block {
	out := b
	if b.Items != nil {
		out.Items = append([]string(nil), b.Items...)
	}
	if b.Header != nil {
		out.Header = append([]string(nil), b.Header...)
	}
	if b.Rows != nil {
		out.Rows = make([][]string, len(b.Rows))
		for i, row := range b.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}
