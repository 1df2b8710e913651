package imagehost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = strings.Repeat("iVBORw0KGgo", 20)

func TestStripDataURI(t *testing.T) {
	assert.Equal(t, "abc", StripDataURI("data:image/png;base64,abc"))
	assert.Equal(t, "abc", StripDataURI("data:image/jpeg;base64,abc"))
	assert.Equal(t, "abc", StripDataURI("abc"))
	assert.Equal(t, "data:text/plain;base64,abc", StripDataURI("data:text/plain;base64,abc"))
}

func TestUploadSendsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "k", r.FormValue("key"))
		assert.Equal(t, payload, r.FormValue("source"))
		assert.Equal(t, "upload", r.FormValue("action"))
		assert.Equal(t, "json", r.FormValue("format"))
		w.Write([]byte(`{"status_code":200,"image":{"url":"https://iili.io/shot.png"}}`))
	}))
	defer srv.Close()

	c := New("k", srv.URL, nil)
	url, err := c.Upload(context.Background(), "data:image/png;base64,"+payload)
	require.NoError(t, err)
	assert.Equal(t, "https://iili.io/shot.png", url)
}

func TestUploadRejectsShortPayload(t *testing.T) {
	c := New("k", "http://127.0.0.1:0", nil)
	_, err := c.Upload(context.Background(), "data:image/png;base64,abc")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestUploadUnexpectedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_code":400,"error":{"message":"quota"}}`))
	}))
	defer srv.Close()

	_, err := New("k", srv.URL, nil).Upload(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestUploadWithoutKey(t *testing.T) {
	c := New("", "", nil)
	assert.False(t, c.Enabled())
	_, err := c.Upload(context.Background(), payload)
	assert.Error(t, err)
}
