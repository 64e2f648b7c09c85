package document

import "strings"

var signatureMarkers = []string{"sd/-", "sd/", "signature:", "signed by"}

// StripSignature removes signature paragraphs from the document. A paragraph is a
// signature when it starts with a known marker or equals the signatory's name.
// The input is not modified.
func StripSignature(doc Document, signatory string) Document {
	signatory = strings.ToLower(strings.TrimSpace(signatory))

	out := Document{}
	for _, b := range doc.Blocks {
		if b.Kind == KindParagraph && isSignature(b.Text, signatory) {
			continue
		}
		out.Blocks = append(out.Blocks, b.clone())
	}
	return out
}

// NormalizeTableHeaders gives every table a header row. Tables without one promote
// their first row; header cells are trimmed and short rows are padded to header width.
// The input is not modified.
func NormalizeTableHeaders(doc Document) Document {
	out := doc.Clone()
	for i := range out.Blocks {
		b := &out.Blocks[i]
		if b.Kind != KindTable {
			continue
		}

		if len(b.Header) == 0 && len(b.Rows) > 0 {
			b.Header = b.Rows[0]
			b.Rows = b.Rows[1:]
		}
		for j, cell := range b.Header {
			b.Header[j] = collapse(cell)
		}

		width := len(b.Header)
		for j, row := range b.Rows {
			for len(row) < width {
				row = append(row, "")
			}
			b.Rows[j] = row
		}
	}
	return out
}

// Cleanup applies the transforms used before a body is previewed
func Cleanup(doc Document, signatory string) Document {
	return NormalizeTableHeaders(StripSignature(doc, signatory))
}

func isSignature(text, signatory string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	if signatory != "" && t == signatory {
		return true
	}
	for _, marker := range signatureMarkers {
		if strings.HasPrefix(t, marker) {
			return true
		}
	}
	return false
}
