// Package manifest fetches and parses llms.txt manifests: markdown
// files of "- [title](url)" links grouped under "## Section" headers,
// pointing at markdown documents to ingest.
package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"semkb/internal/domain"
)

// Link is one markdown document reference from a manifest.
type Link struct {
	Title       string
	URL         string
	Section     string
	Description string
}

var (
	linkPattern    = regexp.MustCompile(`^-\s*\[([^\]]+)\]\(([^)]+)\)(?::\s*(.+))?`)
	sectionPattern = regexp.MustCompile(`^##\s+(.+)$`)
)

// Parse extracts markdown links from manifest content. Relative URLs
// resolve against the manifest URL's origin. Only ".md" targets are
// kept; anchors are stripped. A manifest with no usable links is a
// parse failure.
func Parse(content, manifestURL string) ([]Link, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad manifest url %q: %v", domain.ErrManifestParse, manifestURL, err)
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}

	var links []Link
	seen := make(map[string]struct{})
	section := "default"

	for _, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)

		if m := sectionPattern.FindStringSubmatch(line); m != nil {
			section = strings.TrimSpace(m[1])
			continue
		}

		m := linkPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		target := strings.TrimSpace(m[2])

		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			ref, err := url.Parse(target)
			if err != nil {
				continue
			}
			target = origin.ResolveReference(ref).String()
		}

		if !strings.HasSuffix(target, ".md") && !strings.Contains(target, ".md#") {
			continue
		}
		target = strings.SplitN(target, "#", 2)[0]

		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}

		links = append(links, Link{
			Title:       strings.TrimSpace(m[1]),
			URL:         target,
			Section:     section,
			Description: strings.TrimSpace(m[3]),
		})
	}

	if len(links) == 0 {
		return nil, fmt.Errorf("%w: no markdown links found in %s", domain.ErrManifestParse, manifestURL)
	}
	return links, nil
}

// Fetcher downloads manifests and their linked documents with bounded
// concurrency.
type Fetcher struct {
	client        *http.Client
	maxConcurrent int
}

// NewFetcher creates a fetcher. maxConcurrent bounds parallel document
// downloads.
func NewFetcher(timeout time.Duration, maxConcurrent int) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Fetcher{
		client:        &http.Client{Timeout: timeout},
		maxConcurrent: maxConcurrent,
	}
}

// Fetch downloads one URL. Failures wrap domain.ErrManifestFetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrManifestFetch, rawURL, err)
	}
	req.Header.Set("Accept", "text/plain, text/markdown, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrManifestFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: HTTP %d", domain.ErrManifestFetch, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrManifestFetch, rawURL, err)
	}
	return string(body), nil
}

// FetchAll downloads all URLs concurrently. Individual failures do not
// abort the rest; the failed URLs are returned alongside the fetched
// content.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) (map[string]string, []string) {
	type result struct {
		url     string
		content string
		err     error
	}

	sem := make(chan struct{}, f.maxConcurrent)
	results := make(chan result, len(urls))
	var wg sync.WaitGroup

	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			content, err := f.Fetch(ctx, u)
			results <- result{url: u, content: content, err: err}
		}(u)
	}
	wg.Wait()
	close(results)

	fetched := make(map[string]string, len(urls))
	var failed []string
	for res := range results {
		if res.err != nil {
			failed = append(failed, res.url)
			continue
		}
		fetched[res.url] = res.content
	}
	return fetched, failed
}
