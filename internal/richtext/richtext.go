// Package richtext renders CMS rich-text documents to sanitized HTML.
package richtext

import (
	"bytes"
	"encoding/json"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// Node is one node of a rich-text document tree.
type Node struct {
	NodeType string `json:"nodeType"`
	Value    string `json:"value,omitempty"`
	Marks    []Mark `json:"marks,omitempty"`
	Data     struct {
		URI string `json:"uri,omitempty"`
	} `json:"data"`
	Content []Node `json:"content,omitempty"`
}

type Mark struct {
	Type string `json:"type"`
}

var blockTags = map[string]string{
	"paragraph":      "p",
	"heading-1":      "h1",
	"heading-2":      "h2",
	"heading-3":      "h3",
	"heading-4":      "h4",
	"heading-5":      "h5",
	"heading-6":      "h6",
	"unordered-list": "ul",
	"ordered-list":   "ol",
	"list-item":      "li",
	"blockquote":     "blockquote",
}

var markTags = map[string]string{
	"bold":      "strong",
	"italic":    "em",
	"underline": "u",
	"code":      "code",
}

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// rel is written by the renderer; nofollow would clobber it
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("rel").Matching(regexp.MustCompile(`^noopener noreferrer$`)).OnElements("a")
	return p
}

// Parse decodes a document. Empty input and JSON null yield nil.
func Parse(raw json.RawMessage) (*Node, error) {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 || bytes.Equal(s, []byte("null")) {
		return nil, nil
	}
	var n Node
	if err := json.Unmarshal(s, &n); err != nil {
		return nil, xerrors.Wrap(err, "decode rich text document")
	}
	return &n, nil
}

// Render writes doc as HTML. Unknown node types contribute their children
// only; a nil document renders nothing.
func Render(doc *Node) template.HTML {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	render(&b, doc)
	// output of the sanitizer is safe to embed in templates
	return template.HTML(policy.Sanitize(b.String())) // #nosec G203
}

// RenderJSON parses and renders in one step.
func RenderJSON(raw json.RawMessage) (template.HTML, error) {
	doc, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return Render(doc), nil
}

// IsInternal reports whether href is a same-site path.
func IsInternal(href string) bool {
	return strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//")
}

func render(b *strings.Builder, n *Node) {
	switch n.NodeType {
	case "text":
		renderText(b, n)
		return
	case "hr":
		b.WriteString("<hr>")
		return
	case "hyperlink":
		href := html.EscapeString(n.Data.URI)
		if IsInternal(n.Data.URI) {
			b.WriteString(`<a href="` + href + `">`)
		} else {
			b.WriteString(`<a href="` + href + `" target="_blank" rel="noopener noreferrer">`)
		}
		children(b, n)
		b.WriteString("</a>")
		return
	}
	tag, ok := blockTags[n.NodeType]
	if !ok {
		children(b, n)
		return
	}
	b.WriteString("<" + tag + ">")
	children(b, n)
	b.WriteString("</" + tag + ">")
}

func children(b *strings.Builder, n *Node) {
	for i := range n.Content {
		render(b, &n.Content[i])
	}
}

func renderText(b *strings.Builder, n *Node) {
	var closers []string
	for _, m := range n.Marks {
		if tag, ok := markTags[m.Type]; ok {
			b.WriteString("<" + tag + ">")
			closers = append(closers, "</"+tag+">")
		}
	}
	b.WriteString(html.EscapeString(n.Value))
	for i := len(closers) - 1; i >= 0; i-- {
		b.WriteString(closers[i])
	}
}
