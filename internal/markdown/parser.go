package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

// Meta is the frontmatter block of a lesson file. YAML (---) and TOML (+++)
// blocks are both accepted.
type Meta struct {
	Title       string `yaml:"title" toml:"title"`
	Kind        string `yaml:"kind" toml:"kind"`
	Level       string `yaml:"level" toml:"level"`
	Order       int    `yaml:"order" toml:"order"`
	Description string `yaml:"description" toml:"description"`
}

// Document is a rendered lesson body with its metadata.
type Document struct {
	HTML []byte
	Meta Meta
}

type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
				&frontmatter.Extender{},
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				goldmarkhtml.WithXHTML(),
			),
		),
	}
}

// Parse renders source to HTML. A file without frontmatter has a zero Meta;
// a malformed block is an error.
func (p *Parser) Parse(source []byte) (*Document, error) {
	pctx := parser.NewContext()
	var buf bytes.Buffer

	if err := p.md.Convert(source, &buf, parser.WithContext(pctx)); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	doc := &Document{HTML: buf.Bytes()}
	if data := frontmatter.Get(pctx); data != nil {
		if err := data.Decode(&doc.Meta); err != nil {
			return nil, fmt.Errorf("invalid frontmatter: %w", err)
		}
	}
	return doc, nil
}
