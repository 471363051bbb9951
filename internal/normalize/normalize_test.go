package normalize

import (
	"errors"
	"strings"
	"testing"

	apierrors "github.com/diogo/agentchat/internal/errors"
)

func TestChat(t *testing.T) {
	got, err := Chat([]byte(`{"response":"TCP is a transport protocol."}`))
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got != "TCP is a transport protocol." {
		t.Errorf("got %q", got)
	}
}

func TestChat_MissingField(t *testing.T) {
	_, err := Chat([]byte(`{"slack":"sent"}`))
	if !errors.Is(err, apierrors.ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestConversion(t *testing.T) {
	payload := []byte(`{"markdown_content":"# Title\n\nBody","image_paths":["p1.png","p2.png"]}`)

	got, err := Conversion(payload)
	if err != nil {
		t.Fatalf("Conversion failed: %v", err)
	}
	if got != "# Title\n\nBody" {
		t.Errorf("content = %q", got)
	}

	images := ConversionImages(payload)
	if len(images) != 2 || images[0] != "p1.png" {
		t.Errorf("images = %v", images)
	}
}

func TestConversion_MissingField(t *testing.T) {
	_, err := Conversion([]byte(`{}`))
	if !errors.Is(err, apierrors.ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestSearch_FullPayload(t *testing.T) {
	payload := []byte(`{
		"overview": "HEADLINE\n\nGo 1.24 released.",
		"warning": "You've reached 90% of your daily quota.",
		"total": 2,
		"items": [
			{"title":"Go Blog","link":"https://go.dev/blog","snippet":"Release notes","success":true,"markdown":"The Go team announced..."},
			{"title":"HN Thread","link":"https://news.ycombinator.com/x","success":false,"error":"timeout"}
		]
	}`)

	got := Search(payload)

	for _, want := range []string{
		"> You've reached 90% of your daily quota.",
		"Go 1.24 released.",
		"### Sources (2)",
		"[Go Blog](https://go.dev/blog)",
		"✓",
		"Release notes",
		"The Go team announced...",
		"✗ (timeout)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	// warning banner comes first
	if !strings.HasPrefix(got, "> ") {
		t.Errorf("warning banner is not first:\n%s", got)
	}
}

func TestSearch_NoItemsPlaceholder(t *testing.T) {
	got := Search([]byte(`{"overview":"nothing relevant","items":[]}`))

	if !strings.Contains(got, noSourcesPlaceholder) {
		t.Errorf("missing no-sources placeholder:\n%s", got)
	}
	if strings.Contains(got, "### Sources") {
		t.Errorf("empty source list should not render a header:\n%s", got)
	}
}

func TestSearch_EmptyPayload(t *testing.T) {
	got := Search([]byte(`{}`))
	if got != noSourcesPlaceholder {
		t.Errorf("got %q, want bare placeholder", got)
	}
}

func TestSearch_PreviewTruncated(t *testing.T) {
	long := strings.Repeat("word ", 200)
	payload := []byte(`{"items":[{"title":"T","link":"https://x","markdown":"` + long + `"}]}`)

	got := Search(payload)
	if !strings.Contains(got, "…") {
		t.Error("long preview was not truncated")
	}
	// the preview should not carry the whole crawl
	if strings.Count(got, "word") > previewBudget/4 {
		t.Error("preview too long")
	}
}

func TestDocumentQA(t *testing.T) {
	payload := []byte(`{"answer":"The contract expires in 2027.","page_images":["doc1_page_3.png","https://cdn.example.com/p4.png"]}`)

	got, err := DocumentQA(payload, "http://localhost:8000/")
	if err != nil {
		t.Fatalf("DocumentQA failed: %v", err)
	}

	if !strings.HasPrefix(got, "The contract expires in 2027.") {
		t.Errorf("answer not leading:\n%s", got)
	}
	if !strings.Contains(got, "(http://localhost:8000/page_images/doc1_page_3.png)") {
		t.Errorf("relative page not resolved:\n%s", got)
	}
	if !strings.Contains(got, "(https://cdn.example.com/p4.png)") {
		t.Errorf("absolute page was rewritten:\n%s", got)
	}
}

func TestDocumentQA_NoPages(t *testing.T) {
	got, err := DocumentQA([]byte(`{"answer":"Just text."}`), "http://localhost:8000")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Just text." {
		t.Errorf("got %q", got)
	}
	if strings.Contains(got, "Reference pages") {
		t.Error("page section rendered without pages")
	}
}

func TestDocumentQA_MissingAnswer(t *testing.T) {
	_, err := DocumentQA([]byte(`{"page_images":[]}`), "")
	if !errors.Is(err, apierrors.ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}
