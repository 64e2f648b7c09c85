package document

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseHTML converts an HTML fragment into a structured document.
// Inline formatting is flattened to text and whitespace is collapsed.
func ParseHTML(src string) (Document, error) {
	if strings.TrimSpace(src) == "" {
		return Document{}, nil
	}

	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse document html: %w", err)
	}

	body := findBody(root)
	if body == nil {
		return Document{}, nil
	}

	var doc Document
	collectBlocks(body, &doc)
	return doc, nil
}

// RenderHTML renders the document back to an HTML fragment
func RenderHTML(doc Document) string {
	var sb strings.Builder
	for _, b := range doc.Blocks {
		switch b.Kind {
		case KindParagraph:
			sb.WriteString("<p>")
			sb.WriteString(html.EscapeString(b.Text))
			sb.WriteString("</p>")
		case KindHeading:
			level := b.Level
			if level < 1 || level > 6 {
				level = 2
			}
			fmt.Fprintf(&sb, "<h%d>%s</h%d>", level, html.EscapeString(b.Text), level)
		case KindList:
			sb.WriteString(RenderList(b.Ordered, b.Items))
		case KindTable:
			renderTable(&sb, b)
		}
	}
	return sb.String()
}

// RenderList renders items as an HTML list; nil items render an empty string
func RenderList(ordered bool, items []string) string {
	if len(items) == 0 {
		return ""
	}
	tag := "ul"
	if ordered {
		tag = "ol"
	}

	var sb strings.Builder
	sb.WriteString("<" + tag + ">")
	for _, item := range items {
		sb.WriteString("<li>")
		sb.WriteString(html.EscapeString(item))
		sb.WriteString("</li>")
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}

func renderTable(sb *strings.Builder, b Block) {
	sb.WriteString("<table>")
	if len(b.Header) > 0 {
		sb.WriteString("<thead><tr>")
		for _, cell := range b.Header {
			sb.WriteString("<th>" + html.EscapeString(cell) + "</th>")
		}
		sb.WriteString("</tr></thead>")
	}
	if len(b.Rows) > 0 {
		sb.WriteString("<tbody>")
		for _, row := range b.Rows {
			sb.WriteString("<tr>")
			for _, cell := range row {
				sb.WriteString("<td>" + html.EscapeString(cell) + "</td>")
			}
			sb.WriteString("</tr>")
		}
		sb.WriteString("</tbody>")
	}
	sb.WriteString("</table>")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

func collectBlocks(parent *html.Node, doc *Document) {
	var inline []string

	flush := func() {
		if text := collapse(strings.Join(inline, " ")); text != "" {
			doc.Blocks = append(doc.Blocks, Paragraph(text))
		}
		inline = inline[:0]
	}

	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			inline = append(inline, c.Data)
			continue
		}
		if c.Type != html.ElementNode {
			continue
		}

		switch c.DataAtom {
		case atom.P:
			flush()
			if text := textOf(c); text != "" {
				doc.Blocks = append(doc.Blocks, Paragraph(text))
			}
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			flush()
			doc.Blocks = append(doc.Blocks, Block{
				Kind:  KindHeading,
				Text:  textOf(c),
				Level: int(c.Data[1] - '0'),
			})
		case atom.Ul, atom.Ol:
			flush()
			doc.Blocks = append(doc.Blocks, parseList(c))
		case atom.Table:
			flush()
			doc.Blocks = append(doc.Blocks, parseTable(c))
		case atom.Div, atom.Section, atom.Article, atom.Blockquote:
			flush()
			if hasBlockChild(c) {
				collectBlocks(c, doc)
			} else if text := textOf(c); text != "" {
				doc.Blocks = append(doc.Blocks, Paragraph(text))
			}
		case atom.Br:
			flush()
		default:
			inline = append(inline, textOf(c))
		}
	}
	flush()
}

func parseList(n *html.Node) Block {
	block := Block{Kind: KindList, Ordered: n.DataAtom == atom.Ol}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			block.Items = append(block.Items, textOf(c))
		}
	}
	return block
}

func parseTable(n *html.Node) Block {
	block := Block{Kind: KindTable}

	var walk func(*html.Node, bool)
	walk = func(node *html.Node, inHead bool) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead:
				walk(c, true)
			case atom.Tbody, atom.Tfoot:
				walk(c, false)
			case atom.Tr:
				cells, allHeader := rowCells(c)
				if (inHead || allHeader) && block.Header == nil && len(block.Rows) == 0 {
					block.Header = cells
				} else {
					block.Rows = append(block.Rows, cells)
				}
			}
		}
	}
	walk(n, false)

	return block
}

func rowCells(tr *html.Node) ([]string, bool) {
	var cells []string
	allHeader := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Th:
			cells = append(cells, textOf(c))
		case atom.Td:
			allHeader = false
			cells = append(cells, textOf(c))
		}
	}
	return cells, allHeader && len(cells) > 0
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.P, atom.Ul, atom.Ol, atom.Table, atom.Div, atom.Section,
			atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			parts = append(parts, node.Data)
			return
		}
		if node.Type == html.ElementNode && node.DataAtom == atom.Br {
			parts = append(parts, " ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapse(strings.Join(parts, ""))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
