package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/documents"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/kafka"
)

type memDB map[string]documents.Document

func (m memDB) Upsert(_ context.Context, doc documents.Document) (time.Time, error) {
	m[doc.ID] = doc
	return time.Now().UTC(), nil
}

func (m memDB) Delete(_ context.Context, id string) (bool, error) {
	_, ok := m[id]
	delete(m, id)
	return ok, nil
}

type nopProducer struct{}

func (nopProducer) Publish(context.Context, kafka.Event) error { return nil }

func newMux(db memDB) *http.ServeMux {
	mux := http.NewServeMux()
	New(publisher.New(db, nopProducer{}), validator.Limits{MaxContentLength: 100}).Register(mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestSaveAndDelete(t *testing.T) {
	db := memDB{}
	mux := newMux(db)

	rec := serve(mux, http.MethodPut, "/api/v1/documents/n1", `{"name":"Note","content":"#a"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"published"`)
	assert.Equal(t, "#a", db["n1"].Content)

	rec = serve(mux, http.MethodDelete, "/api/v1/documents/n1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(mux, http.MethodDelete, "/api/v1/documents/n1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveValidation(t *testing.T) {
	mux := newMux(memDB{})

	rec := serve(mux, http.MethodPut, "/api/v1/documents/n1", `{"content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name"`)

	rec = serve(mux, http.MethodPut, "/api/v1/documents/n1", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodPut, "/api/v1/documents/n1", `{"name":"x","content":"`+strings.Repeat("a", 101)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content"`)
}
