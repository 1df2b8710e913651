package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/pbaille/autojournal/internal/errors"
)

const doc = `<!doctype html>
<html><head>
  <title>  Example
  Domain </title>
  <link rel="shortcut icon" href="/static/icon.png">
  <style>body { color: red }</style>
</head><body>
  <nav>Home | About</nav>
  <h1>Hello</h1>
  <p>This domain is for <b>examples</b>.</p>
  <script>track()</script>
</body></html>`

func TestExtract(t *testing.T) {
	base, _ := url.Parse("https://example.com/post/1")
	page, err := Extract(doc, base)
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", page.Title)
	assert.Equal(t, "Hello This domain is for examples .", page.Text)
	assert.Equal(t, "https://example.com/static/icon.png", page.Favicon)
}

func TestExtractDefaults(t *testing.T) {
	base, _ := url.Parse("https://example.com/x")
	page, err := Extract("<p>bare</p>", base)
	require.NoError(t, err)
	assert.Equal(t, "example.com", page.Title)
	assert.Equal(t, "https://example.com/favicon.ico", page.Favicon)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(doc))
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	page, err := f.Fetch(context.Background(), srv.URL+"/post")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/post", page.URL)
	assert.Equal(t, "Example Domain", page.Title)
	assert.Equal(t, srv.URL+"/static/icon.png", page.Favicon)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.True(t, appErrors.IsExternal(err))
}

func TestNormalize(t *testing.T) {
	u, err := Normalize("example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", u.String())

	_, err = Normalize("ftp://example.com")
	assert.True(t, appErrors.IsInvalidURL(err))
	_, err = Normalize("https://")
	assert.True(t, appErrors.IsInvalidURL(err))
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com"))
	assert.True(t, IsURL(" www.example.com"))
	assert.False(t, IsURL("example"))
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := strings.Repeat("é", 10)
	got := truncate(s, 5)
	assert.Equal(t, "éé", got)
}
