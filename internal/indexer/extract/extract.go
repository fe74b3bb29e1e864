// Package extract pulls indexable text out of rendered documentation pages.
//
// A page is indexed from its root: the <html> element itself when it carries
// an id, otherwise the first <div id="main">. Each direct <div> child of the
// root with an id is a section. Within a section, headings, paragraphs,
// unordered lists and tables are collected (in that order, each query in
// document order) and every match becomes one Content whose URL points at the
// nearest enclosing id.
package extract

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// DefaultLanguage is the language of content outside any symbol block.
	DefaultLanguage = "default"

	// MainID is the id of the container div used when <html> has no id.
	MainID = "main"

	symbolClass  = "gi-symbol"
	symbolPrefix = len("gi-symbol-")
)

// TokenContext locates a piece of content: the id it is anchored to and the
// language variant it documents.
type TokenContext struct {
	Language string
	ID       string
}

// Content is the text of one matched element.
type Content struct {
	Text     string
	Context  TokenContext
	NodeType string
	URL      string
}

// queries are run per section, in order.
var queries = [][]atom.Atom{
	{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6},
	{atom.P},
	{atom.Ul},
	{atom.Table},
}

// Parse reads an HTML document and extracts its content. filename is the
// page path used as the URL prefix.
func Parse(filename string, r io.Reader) ([]Content, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return Document(filename, doc), nil
}

// Document extracts content from a parsed document. It returns nil when the
// document has no indexable root.
func Document(filename string, doc *html.Node) []Content {
	root := Root(doc)
	if root == nil {
		return nil
	}
	var out []Content
	for _, section := range Sections(root) {
		for _, tags := range queries {
			for _, n := range descendants(section, tags) {
				ctx := Context(n)
				out = append(out, Content{
					Text:     TextContent(n),
					Context:  ctx,
					NodeType: n.Data,
					URL:      filename + "#" + ctx.ID,
				})
			}
		}
	}
	return out
}

// Root returns the indexable root of doc, or nil.
func Root(doc *html.Node) *html.Node {
	top := documentElement(doc)
	if top == nil {
		return nil
	}
	if _, ok := attr(top, "id"); ok {
		return top
	}
	return findMain(top)
}

func documentElement(doc *html.Node) *html.Node {
	if doc.Type == html.ElementNode {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func findMain(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Div {
		if id, ok := attr(n, "id"); ok && id == MainID {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findMain(c); found != nil {
			return found
		}
	}
	return nil
}

// Sections returns the direct <div> children of root that carry an id.
func Sections(root *html.Node) []*html.Node {
	var sections []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Div {
			continue
		}
		if _, ok := attr(c, "id"); ok {
			sections = append(sections, c)
		}
	}
	return sections
}

// descendants returns the elements below n (not n itself) whose tag is one
// of tags, in document order.
func descendants(n *html.Node, tags []atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			for _, tag := range tags {
				if c.DataAtom == tag {
					out = append(out, c)
					break
				}
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// Context walks up from n to the nearest element with an id. On the way, the
// first symbol marker found sets the language.
func Context(n *html.Node) TokenContext {
	ctx := TokenContext{Language: DefaultLanguage}
	for e := n; e != nil; e = e.Parent {
		if e.Type != html.ElementNode {
			continue
		}
		if ctx.Language == DefaultLanguage {
			if lang, ok := symbolLanguage(e); ok {
				ctx.Language = lang
			}
		}
		if id, ok := attr(e, "id"); ok {
			ctx.ID = id
			return ctx
		}
	}
	return ctx
}

// symbolLanguage reads the language of a symbol block. The block's class
// list contains "gi-symbol" and its second class names the language as
// "gi-symbol-<language>".
func symbolLanguage(n *html.Node) (string, bool) {
	class, ok := attr(n, "class")
	if !ok {
		return "", false
	}
	classes := strings.Split(class, " ")
	if len(classes) < 2 {
		return "", false
	}
	found := false
	for _, c := range classes {
		if c == symbolClass {
			found = true
			break
		}
	}
	if !found || len(classes[1]) < symbolPrefix {
		return "", false
	}
	return classes[1][symbolPrefix:], true
}

// TextContent concatenates every text node below n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		if p.Type == html.TextNode {
			sb.WriteString(p.Data)
			return
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
