package moderation

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns submitted Markdown into sanitized HTML and strips markup
// from plain-text fields. Bodies are stored as Markdown; only the rendered
// HTML is sanitized.
type Renderer struct {
	markdown goldmark.Markdown
	ugc      *bluemonday.Policy
	strict   *bluemonday.Policy
}

// NewRenderer creates a renderer with GFM extensions and the UGC policy.
func NewRenderer() *Renderer {
	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
	}
}

// RenderHTML converts Markdown to sanitized HTML. Conversion failures fall
// back to the sanitized source.
func (r *Renderer) RenderHTML(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return r.ugc.Sanitize(source)
	}
	return string(r.ugc.SanitizeBytes(buf.Bytes()))
}

// SanitizeText strips all markup from single-line fields such as titles.
func (r *Renderer) SanitizeText(s string) string {
	return strings.TrimSpace(stdhtml.UnescapeString(r.strict.Sanitize(s)))
}
