package pkg

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type TestHttpResponseWriter struct {
	HeaderMap  http.Header
	Body       []byte
	StatusCode int
}

func (w *TestHttpResponseWriter) Header() http.Header {
	return w.HeaderMap
}

func (w *TestHttpResponseWriter) Write(bytes []byte) (int, error) {
	w.Body = bytes
	return len(bytes), nil
}

func (w *TestHttpResponseWriter) WriteHeader(statusCode int) {
	w.StatusCode = statusCode
}

func newTestWriter() *TestHttpResponseWriter {
	return &TestHttpResponseWriter{
		HeaderMap: make(http.Header),
	}
}

func TestWriteResponseBytes(t *testing.T) {
	w := newTestWriter()

	testJson := `{"key":"val"}`
	WriteResponseBytes(w, ContentType.JSON, []byte(testJson), http.StatusCreated)

	assert.Equal(t, http.StatusCreated, w.StatusCode)
	assert.Equal(t, ContentType.JSON, w.HeaderMap.Get("Content-Type"))
	assert.Equal(t, testJson, string(w.Body))
}

func TestWriteResponseBytesOK(t *testing.T) {
	w := newTestWriter()

	testJson := `{"key":"val"}`
	WriteResponseBytesOK(w, ContentType.JSON, []byte(testJson))

	assert.Equal(t, http.StatusOK, w.StatusCode)
	assert.Equal(t, ContentType.JSON, w.HeaderMap.Get("Content-Type"))
	assert.Equal(t, testJson, string(w.Body))
}

func TestWriteTextResponseOK(t *testing.T) {
	w := newTestWriter()

	WriteTextResponseOK(w, "test text")

	assert.Equal(t, http.StatusOK, w.StatusCode)
	assert.Equal(t, ContentType.Text, w.HeaderMap.Get("Content-Type"))
	assert.Equal(t, "test text", string(w.Body))
}

func TestWriteJSON(t *testing.T) {
	w := newTestWriter()

	WriteJSON(w, map[string]int{"steps": 4200}, http.StatusOK)
	assert.Equal(t, http.StatusOK, w.StatusCode)
	assert.Equal(t, ContentType.JSON, w.HeaderMap.Get("Content-Type"))
	assert.JSONEq(t, `{"steps":4200}`, string(w.Body))
}

func TestAllowMethods(t *testing.T) {
	w := newTestWriter()

	AllowMethods("GET", "PUT")(w, nil)

	assert.Equal(t, http.StatusOK, w.StatusCode)
	assert.Equal(t, "GET, PUT, OPTIONS", w.HeaderMap.Get("Allow"))
	assert.Empty(t, w.Body)
}
