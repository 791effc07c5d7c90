package service

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/voclaria/voclaria/internal/markdown"
)

//go:embed emails/*.md
var emailFS embed.FS

// Email bodies are markdown with a frontmatter title used as the subject.
// The executed markdown is sent as the text part and its rendering as HTML.
var emailTemplates = template.Must(
	template.New("emails").
		Funcs(template.FuncMap{"quote": strconv.Quote}).
		ParseFS(emailFS, "emails/*.md"),
)

var emailRenderer = markdown.NewParser()

type emailData struct {
	Name    string
	URL     string
	AppName string
	Role    string
	Teacher string
}

type emailMessage struct {
	Subject string
	Text    string
	HTML    string
}

func renderEmail(name string, data emailData) (*emailMessage, error) {
	if strings.TrimSpace(data.Name) == "" {
		data.Name = "there"
	}

	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name+".md", data); err != nil {
		return nil, fmt.Errorf("failed to execute %s email: %w", name, err)
	}

	doc, err := emailRenderer.Parse(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to render %s email: %w", name, err)
	}
	if doc.Meta.Title == "" {
		return nil, fmt.Errorf("%s email has no subject", name)
	}

	return &emailMessage{
		Subject: doc.Meta.Title,
		Text:    stripFrontmatter(buf.String()),
		HTML:    string(doc.HTML),
	}, nil
}

func stripFrontmatter(s string) string {
	rest, ok := strings.CutPrefix(s, "---\n")
	if !ok {
		return s
	}
	if _, body, found := strings.Cut(rest, "\n---\n"); found {
		return strings.TrimSpace(body)
	}
	return s
}
