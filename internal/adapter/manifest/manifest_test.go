package manifest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"semkb/internal/domain"
)

func TestParseSectionsAndLinks(t *testing.T) {
	content := `# Example Docs

## Guides
- [Getting Started](https://example.com/start.md): intro guide
- [Advanced](/docs/advanced.md)

## API
- [Reference](https://example.com/api.md#section): full reference
- [Changelog](https://example.com/changelog.html)

random prose that is not a link
`
	links, err := Parse(content, "https://example.com/llms.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d: %v", len(links), links)
	}

	if links[0].Title != "Getting Started" || links[0].Section != "Guides" {
		t.Errorf("unexpected first link: %+v", links[0])
	}
	if links[0].Description != "intro guide" {
		t.Errorf("description not captured: %q", links[0].Description)
	}
	if links[1].URL != "https://example.com/docs/advanced.md" {
		t.Errorf("relative URL not resolved: %q", links[1].URL)
	}
	if links[2].URL != "https://example.com/api.md" {
		t.Errorf("anchor not stripped: %q", links[2].URL)
	}
	if links[2].Section != "API" {
		t.Errorf("section not tracked: %q", links[2].Section)
	}
}

func TestParseDeduplicatesURLs(t *testing.T) {
	content := `## A
- [One](https://example.com/doc.md)
- [Two](https://example.com/doc.md#other)
`
	links, err := Parse(content, "https://example.com/llms.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 unique link, got %d", len(links))
	}
}

func TestParseNoLinks(t *testing.T) {
	_, err := Parse("just text, no links at all", "https://example.com/llms.txt")
	if !errors.Is(err, domain.ErrManifestParse) {
		t.Fatalf("expected ErrManifestParse, got %v", err)
	}
}

func TestFetchAllToleratesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.md":
			w.Write([]byte("good content"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(0, 2)
	urls := []string{srv.URL + "/good.md", srv.URL + "/missing.md"}

	fetched, failed := f.FetchAll(context.Background(), urls)
	if len(fetched) != 1 {
		t.Fatalf("expected 1 fetched document, got %d", len(fetched))
	}
	if fetched[urls[0]] != "good content" {
		t.Errorf("unexpected content: %q", fetched[urls[0]])
	}
	if len(failed) != 1 || failed[0] != urls[1] {
		t.Errorf("expected the missing URL to be reported failed, got %v", failed)
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(0, 1)
	if _, err := f.Fetch(context.Background(), srv.URL+"/llms.txt"); !errors.Is(err, domain.ErrManifestFetch) {
		t.Fatalf("expected ErrManifestFetch, got %v", err)
	}
}
