package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rec := newRecorder(w)

	_, err := rec.Write([]byte("abc"))
	require.NoError(t, err)
	rec.WriteHeader(http.StatusTeapot)
	_, err = rec.Write([]byte("de"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.status)
	assert.Equal(t, int64(5), rec.size)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abcde", w.Body.String())
}

func TestRecorder_FlushWritesHeader(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rec := newRecorder(w)
	rec.Flush()

	assert.True(t, rec.wroteHeader)
	assert.True(t, w.Flushed)
	assert.Equal(t, w, rec.Unwrap())
}

func TestRequestSize(t *testing.T) {
	t.Parallel()

	t.Run("Counted body", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
		body := &countingBody{ReadCloser: r.Body}
		_, _ = io.ReadAll(body)
		assert.Equal(t, int64(5), requestSize(r, body))
	})

	t.Run("Unread body uses content length", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
		assert.Equal(t, int64(5), requestSize(r, &countingBody{ReadCloser: r.Body}))
	})

	t.Run("Unknown length", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.ContentLength = -1
		assert.Equal(t, int64(0), requestSize(r, &countingBody{ReadCloser: http.NoBody}))
	})
}
