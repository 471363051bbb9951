// Package normalize converts terminal payloads of non-streaming operations
// into canonical markdown. Functions here are pure: same payload in, same
// text out, no I/O.
package normalize

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

// previewBudget caps the crawled-content preview per search source.
const previewBudget = 280

// noSourcesPlaceholder is rendered instead of an empty source list.
const noSourcesPlaceholder = "_No sources found._"

// Chat extracts the single text field of a plain-chat or markdown-mode
// payload verbatim. A payload without it is malformed.
func Chat(payload []byte) (string, error) {
	field := gjson.GetBytes(payload, "response")
	if !field.Exists() {
		return "", fmt.Errorf("chat payload: %w", apierrors.ErrMissingField)
	}
	return field.String(), nil
}

// Conversion extracts the markdown produced by the PDF conversion endpoint.
func Conversion(payload []byte) (string, error) {
	field := gjson.GetBytes(payload, "markdown_content")
	if !field.Exists() {
		return "", fmt.Errorf("conversion payload: %w", apierrors.ErrMissingField)
	}
	return field.String(), nil
}

// ConversionImages lists the names of images extracted during conversion.
func ConversionImages(payload []byte) []string {
	var names []string
	gjson.GetBytes(payload, "image_paths").ForEach(func(_, v gjson.Result) bool {
		if v.String() != "" {
			names = append(names, v.String())
		}
		return true
	})
	return names
}

// Search renders a search payload: optional warning banner first, then the
// overview prose, then an enumerated source list. Missing sections are
// omitted; an empty result set gets an explicit placeholder.
func Search(payload []byte) string {
	var b strings.Builder

	if warning := gjson.GetBytes(payload, "warning"); warning.Exists() && warning.String() != "" {
		b.WriteString("> ")
		b.WriteString(warning.String())
		b.WriteString("\n\n")
	}

	if overview := gjson.GetBytes(payload, "overview"); overview.String() != "" {
		b.WriteString(overview.String())
		b.WriteString("\n\n")
	}

	items := gjson.GetBytes(payload, "items")
	if !items.Exists() || !items.IsArray() || len(items.Array()) == 0 {
		b.WriteString(noSourcesPlaceholder)
		return strings.TrimRight(b.String(), "\n")
	}

	entries := items.Array()
	fmt.Fprintf(&b, "### Sources (%d)\n\n", len(entries))
	for i, item := range entries {
		b.WriteString(formatSource(i+1, item))
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatSource(n int, item gjson.Result) string {
	var b strings.Builder

	title := item.Get("title").String()
	if title == "" {
		title = item.Get("link").String()
	}
	if title == "" {
		title = "Untitled"
	}

	fmt.Fprintf(&b, "%d. **", n)
	if link := item.Get("link").String(); link != "" {
		fmt.Fprintf(&b, "[%s](%s)", title, link)
	} else {
		b.WriteString(title)
	}
	b.WriteString("**")

	if status := sourceStatus(item); status != "" {
		b.WriteString(" ")
		b.WriteString(status)
	}
	b.WriteString("\n")

	if snippet := item.Get("snippet").String(); snippet != "" {
		fmt.Fprintf(&b, "   %s\n", snippet)
	}

	if preview := item.Get("markdown").String(); preview != "" {
		fmt.Fprintf(&b, "   > %s\n", truncate(flatten(preview), previewBudget))
	}

	b.WriteString("\n")
	return b.String()
}

// sourceStatus renders the crawl status indicator when the payload carries
// one.
func sourceStatus(item gjson.Result) string {
	success := item.Get("success")
	if !success.Exists() {
		return ""
	}
	if success.Bool() {
		return "✓"
	}
	if errMsg := item.Get("error").String(); errMsg != "" {
		return "✗ (" + errMsg + ")"
	}
	return "✗"
}

// DocumentQA renders a document-QA payload: the answer followed by an
// optional list of reference-page image links, resolved against baseURL
// when the payload supplies relative names.
func DocumentQA(payload []byte, baseURL string) (string, error) {
	answer := gjson.GetBytes(payload, "answer")
	if !answer.Exists() {
		return "", fmt.Errorf("document payload: %w", apierrors.ErrMissingField)
	}

	var b strings.Builder
	b.WriteString(answer.String())

	pages := gjson.GetBytes(payload, "page_images").Array()
	if len(pages) > 0 {
		b.WriteString("\n\n### Reference pages\n\n")
		for i, page := range pages {
			name := page.String()
			if name == "" {
				continue
			}
			fmt.Fprintf(&b, "- [Page %d](%s)\n", i+1, resolvePageURL(name, baseURL))
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func resolvePageURL(name, baseURL string) string {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	base := strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(name, "/") {
		return base + name
	}
	return base + models.EndpointPageImages + "/" + name
}

// flatten collapses a multi-line preview into a single line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate limits s to max runes, marking the cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
