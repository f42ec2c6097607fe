// Package classify tags raw log lines and renders them as HTML fragments
// for the browser viewer.
package classify

import (
	"html"
	"strings"
)

// Category is the semantic class of a log line.
type Category int

const (
	Plain Category = iota
	Error
	Warning
	ImageRef
)

func (c Category) String() string {
	switch c {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case ImageRef:
		return "image"
	default:
		return "plain"
	}
}

// Tokens matched as case-sensitive substrings, in precedence order.
const (
	errorToken   = "ERROR"
	warningToken = "WARNING"
	imageToken   = "jpg"
)

const lineBreak = "<br/>"

// Line is one classified log line.
type Line struct {
	Raw      string
	Category Category
	// Link is the public image path for ImageRef lines, empty otherwise.
	Link string
	HTML string
}

type Classifier struct {
	imageRoot string
}

// New returns a classifier that strips imageRoot from embedded image paths.
func New(imageRoot string) *Classifier {
	return &Classifier{imageRoot: imageRoot}
}

// Classify tags raw and renders it. Precedence is Error, Warning, ImageRef,
// Plain; the first token found wins.
func (c *Classifier) Classify(raw string) Line {
	raw = strings.TrimRight(raw, "\r\n")
	line := Line{Raw: raw}
	text := html.EscapeString(raw)

	switch {
	case strings.Contains(raw, errorToken):
		line.Category = Error
		line.HTML = `<span style="color: red;">` + text + `</span>` + lineBreak
	case strings.Contains(raw, warningToken):
		line.Category = Warning
		line.HTML = `<span style="color: orange;">` + text + `</span>` + lineBreak
	case strings.Contains(raw, imageToken):
		line.Category = ImageRef
		line.Link = c.imageLink(raw)
		line.HTML = `<a href="` + html.EscapeString(line.Link) + `" target="_blank">` + text + `</a>` + lineBreak
	default:
		line.Category = Plain
		line.HTML = text + lineBreak
	}
	return line
}

// ClassifyAll classifies lines in order.
func (c *Classifier) ClassifyAll(raw []string) []Line {
	out := make([]Line, len(raw))
	for i, r := range raw {
		out[i] = c.Classify(r)
	}
	return out
}

// Render classifies lines and concatenates their HTML in input order.
func (c *Classifier) Render(raw []string) string {
	var b strings.Builder
	for _, r := range raw {
		b.WriteString(c.Classify(r).HTML)
	}
	return b.String()
}

// imageLink takes the text after the last colon as the absolute image path
// and makes it relative to the image root.
func (c *Classifier) imageLink(raw string) string {
	p := raw
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		p = raw[i+1:]
	}
	p = strings.TrimSpace(p)
	if c.imageRoot != "" {
		p = strings.TrimPrefix(p, strings.TrimRight(c.imageRoot, "/"))
	}
	return p
}
