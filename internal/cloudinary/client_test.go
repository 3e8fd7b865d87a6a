package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClient(base string) *Client {
	c := New("demo", "key", "secret", "wellcheck/selfies")
	c.APIBase = base
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestSign(t *testing.T) {
	c := fixedClient("")
	params := map[string]string{
		"timestamp": "1700000000",
		"folder":    "wellcheck/selfies",
		"api_key":   "key",
		"public_id": "",
	}
	want := sha1.Sum([]byte("folder=wellcheck/selfies&timestamp=1700000000secret"))
	assert.Equal(t, fmt.Sprintf("%x", want), c.sign(params))
}

func TestFormIsSigned(t *testing.T) {
	form := fixedClient("").form("rec-1")
	assert.Equal(t, "rec-1", form["public_id"])
	assert.Equal(t, selfieTags, form["tags"])

	want := sha1.Sum([]byte("folder=wellcheck/selfies&overwrite=true&public_id=rec-1&tags=" + selfieTags + "&timestamp=1700000000secret"))
	assert.Equal(t, fmt.Sprintf("%x", want), form["signature"])
}

func TestUploadSelfie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "rec-1", r.FormValue("public_id"))
		assert.NotEmpty(t, r.FormValue("signature"))

		f, hdr, err := r.FormFile("file")
		if assert.NoError(t, err) {
			data, _ := io.ReadAll(f)
			assert.Equal(t, "jpegdata", string(data))
			assert.Equal(t, "rec-1.jpg", hdr.Filename)
		}
		_, _ = w.Write([]byte(`{"public_id":"wellcheck/selfies/rec-1","secure_url":"https://res.cloudinary.com/demo/rec-1.jpg","width":640,"height":480}`))
	}))
	defer srv.Close()

	asset, err := fixedClient(srv.URL).UploadSelfie(context.Background(), "rec-1", []byte("jpegdata"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/rec-1.jpg", asset.URL)
	assert.Equal(t, 640, asset.Width)
}

func TestUploadSelfieError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := fixedClient(srv.URL).UploadSelfie(context.Background(), "rec-1", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid Signature")

	_, err = fixedClient(srv.URL).UploadSelfie(context.Background(), "", []byte("x"))
	assert.ErrorContains(t, err, "record id")
}
