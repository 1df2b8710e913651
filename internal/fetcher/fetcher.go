// Package fetcher downloads a page and extracts what a browser capture
// would have reported: title, readable text and favicon.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	appErrors "github.com/pbaille/autojournal/internal/errors"
)

const (
	maxBodyBytes = 5 << 20
	maxTextBytes = 64 << 10
	userAgent    = "autojournal/1.0 (+capture)"
)

// Page is the extracted content of a fetched URL.
type Page struct {
	URL     string
	Title   string
	Text    string
	Favicon string
}

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher whose requests time out after timeout.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch retrieves rawURL and extracts its content. A URL without a scheme
// is fetched over https.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, appErrors.NewExternal("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.NewExternal("fetch", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, appErrors.NewExternal("fetch", fmt.Errorf("read body: %w", err))
	}

	// redirects change the page's URL
	final := resp.Request.URL
	page, err := Extract(string(body), final)
	if err != nil {
		return nil, err
	}
	page.URL = u.String()
	return page, nil
}

// Normalize parses rawURL, defaulting the scheme to https.
func Normalize(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, appErrors.NewInvalidURL(rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, appErrors.NewInvalidURL(rawURL, fmt.Errorf("unsupported scheme: %s", u.Scheme))
	}
	if u.Host == "" {
		return nil, appErrors.NewInvalidURL(rawURL, nil)
	}
	return u, nil
}

// IsURL checks if a string looks like a URL
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}

// Extract parses an HTML document served at base.
func Extract(htmlContent string, base *url.URL) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{}
	var sb strings.Builder
	var extract func(*html.Node)

	// Tags to skip (non-content)
	skipTags := map[string]bool{
		"script": true, "style": true, "nav": true,
		"header": true, "footer": true, "aside": true,
		"noscript": true, "iframe": true, "svg": true,
	}

	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if page.Title == "" && n.FirstChild != nil {
					page.Title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
				}
				return
			case "link":
				if page.Favicon == "" && isIconRel(attr(n, "rel")) {
					page.Favicon = resolve(base, attr(n, "href"))
				}
			}
			if skipTags[n.Data] {
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}

	extract(doc)

	page.Text = truncate(strings.Join(strings.Fields(sb.String()), " "), maxTextBytes)
	if page.Favicon == "" && base != nil {
		page.Favicon = resolve(base, "/favicon.ico")
	}
	if page.Title == "" && base != nil {
		page.Title = base.Host
	}
	return page, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func isIconRel(rel string) bool {
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == "icon" {
			return true
		}
	}
	return false
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
