package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/cv-validator/internal/models"
	"alfredoptarigan/cv-validator/internal/repositories"
	"alfredoptarigan/cv-validator/internal/services"
)

type memSubs struct {
	mu   sync.Mutex
	subs map[uuid.UUID]models.Submission
	err  error
}

func (m *memSubs) Create(s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.subs[s.ID] = *s
	return nil
}

func (m *memSubs) FindByID(id uuid.UUID) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	return &s, nil
}

func (m *memSubs) MarkValidating(uuid.UUID, int) error { return nil }
func (m *memSubs) Complete(uuid.UUID, int, *repositories.ValidationUpdateData) error {
	return nil
}
func (m *memSubs) Fail(uuid.UUID, int, string) error { return nil }
func (m *memSubs) FindPending(int) ([]models.Submission, error) { return nil, nil }
func (m *memSubs) FindValidated(int, int) ([]models.Submission, error) { return nil, nil }

type memDocs struct {
	docs map[uuid.UUID]models.Document
}

func (m *memDocs) Create(d *models.Document) error {
	m.docs[d.ID] = *d
	return nil
}

func (m *memDocs) FindByID(id uuid.UUID) (*models.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, repositories.ErrDocumentNotFound
	}
	return &d, nil
}

func (m *memDocs) Delete(id uuid.UUID) error {
	delete(m.docs, id)
	return nil
}

type stubParser struct {
	pages int
	err   error
}

func (p stubParser) PageCount([]byte) (int, error) { return p.pages, p.err }
func (p stubParser) ExtractText([]byte) (*services.PDFContent, error) {
	return nil, errors.New("not used")
}

type stubWorker struct {
	enqueued []uuid.UUID
}

func (w *stubWorker) Start(context.Context) error { return nil }
func (w *stubWorker) Stop() {}
func (w *stubWorker) EnqueueJob(id uuid.UUID) bool {
	w.enqueued = append(w.enqueued, id)
	return true
}

type stubIndex struct {
	hits []services.SearchResult
	err  error
}

func (s stubIndex) IndexDocument(context.Context, string, string, []byte) (int, error) {
	return 0, nil
}
func (s stubIndex) Search(_ context.Context, q string, limit int) ([]services.SearchResult, error) {
	if q == "" {
		return nil, services.ErrEmptyQuery
	}
	return s.hits, s.err
}

type testServer struct {
	app    *fiber.App
	subs   *memSubs
	docs   *memDocs
	worker *stubWorker
}

func newTestServer(t *testing.T, parser services.PDFParserService, index services.CVIndexService) *testServer {
	t.Helper()

	ts := &testServer{
		subs:   &memSubs{subs: map[uuid.UUID]models.Submission{}},
		docs:   &memDocs{docs: map[uuid.UUID]models.Document{}},
		worker: &stubWorker{},
	}
	storage := services.NewStorageService(t.TempDir(), time.Second)
	log := zap.NewNop()

	ts.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(ts.app,
		NewSubmissionHandler(ts.subs, ts.docs, storage, parser, ts.worker, 1<<20, log),
		NewResultHandler(ts.subs, log),
		NewSearchHandler(index, log),
	)
	return ts
}

func submitRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("cv", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target), string(body))
}

func TestHandleSubmit_Accepted(t *testing.T) {
	ts := newTestServer(t, stubParser{pages: 2}, stubIndex{})

	resp, err := ts.app.Test(submitRequest(t, map[string]string{
		"name":   "Jane <b>Doe</b>",
		"email":  "jane@example.com",
		"skills": "Go & PostgreSQL",
	}, "cv.pdf", []byte("%PDF-1.4 fake")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var body models.SubmissionResponse
	decode(t, resp, &body)
	assert.Equal(t, "pending", body.Status)

	id := uuid.MustParse(body.ID)
	sub, err := ts.subs.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", sub.FullName)
	require.NotNil(t, sub.Skills)
	assert.Equal(t, "Go & PostgreSQL", *sub.Skills)
	assert.Nil(t, sub.Phone)
	assert.Equal(t, []uuid.UUID{id}, ts.worker.enqueued)

	doc, err := ts.docs.FindByID(sub.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, "cv.pdf", doc.OriginalFileName)
}

func TestHandleSubmit_RejectsBeforeSideEffects(t *testing.T) {
	valid := map[string]string{"name": "Jane Doe", "email": "jane@example.com"}

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		parser   stubParser
		wantErr  string
	}{
		{name: "missing name", fields: map[string]string{"email": "jane@example.com"}, filename: "cv.pdf", parser: stubParser{pages: 1}, wantErr: "name is required"},
		{name: "markup only name", fields: map[string]string{"name": "<script></script>", "email": "jane@example.com"}, filename: "cv.pdf", parser: stubParser{pages: 1}, wantErr: "name is required"},
		{name: "missing email", fields: map[string]string{"name": "Jane"}, filename: "cv.pdf", parser: stubParser{pages: 1}, wantErr: "email is required"},
		{name: "bad email", fields: map[string]string{"name": "Jane", "email": "not-an-email"}, filename: "cv.pdf", parser: stubParser{pages: 1}, wantErr: "email is not a valid address"},
		{name: "missing file", fields: valid, parser: stubParser{pages: 1}, wantErr: "cv file is required"},
		{name: "wrong extension", fields: valid, filename: "cv.docx", parser: stubParser{pages: 1}, wantErr: "CV must be a .pdf file"},
		{name: "unreadable pdf", fields: valid, filename: "cv.pdf", parser: stubParser{err: services.ErrNotPDF}, wantErr: "CV must be a readable PDF document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.parser, stubIndex{})

			resp, err := ts.app.Test(submitRequest(t, tt.fields, tt.filename, []byte("%PDF-1.4")))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			decode(t, resp, &body)
			assert.Equal(t, tt.wantErr, body["error"])
			assert.Empty(t, ts.subs.subs)
			assert.Empty(t, ts.docs.docs)
			assert.Empty(t, ts.worker.enqueued)
		})
	}
}

func TestHandleSubmit_RepositoryFailureCleansUp(t *testing.T) {
	ts := newTestServer(t, stubParser{pages: 1}, stubIndex{})
	ts.subs.err = errors.New("db down")

	resp, err := ts.app.Test(submitRequest(t, map[string]string{
		"name": "Jane", "email": "jane@example.com",
	}, "cv.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "failed to create submission", body["error"])
	assert.Empty(t, ts.docs.docs)
	assert.Empty(t, ts.worker.enqueued)
}

func TestHandleGetResult(t *testing.T) {
	ts := newTestServer(t, stubParser{pages: 1}, stubIndex{})

	pending := models.Submission{ID: uuid.New(), Status: models.StatusValidating}
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	failed := models.Submission{
		ID:     uuid.New(),
		Status: models.StatusFailed,
		ValidationResult: &models.ValidationResult{
			Fields:  []models.FieldVerdict{{Field: "email", Status: models.FieldNoMatch, Confidence: 0.8, Reason: "different"}},
			Summary: models.ValidationSummary{TotalChecked: 1, NoMatchCount: 1, OverallConfidence: 0.8},
		},
		ValidationErrors: models.StringList{"email: different"},
		ValidatedAt:      &now,
	}
	ts.subs.subs[pending.ID] = pending
	ts.subs.subs[failed.ID] = failed

	t.Run("in progress", func(t *testing.T) {
		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/"+pending.ID.String(), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		decode(t, resp, &body)
		assert.Equal(t, "validating", body["status"])
		assert.NotContains(t, body, "outcome")
		assert.NotContains(t, body, "validation_result")
	})

	t.Run("terminal", func(t *testing.T) {
		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/"+failed.ID.String(), nil))
		require.NoError(t, err)

		var body models.ResultResponse
		decode(t, resp, &body)
		require.NotNil(t, body.Outcome)
		assert.Equal(t, models.OutcomeFailed, *body.Outcome)
		assert.Equal(t, []string{"email: different"}, body.ValidationErrors)
		require.NotNil(t, body.ValidationResult)
		assert.Equal(t, 1, body.ValidationResult.Summary.NoMatchCount)
		require.NotNil(t, body.ValidatedAt)
		assert.Equal(t, "2026-10-01T12:00:00Z", *body.ValidatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/"+uuid.NewString(), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad id", func(t *testing.T) {
		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleSearch(t *testing.T) {
	hits := []services.SearchResult{{SubmissionID: "abc", Score: 0.91, Text: "Go developer"}}

	t.Run("ok", func(t *testing.T) {
		ts := newTestServer(t, stubParser{}, stubIndex{hits: hits})

		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/search?q=golang&limit=3", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body models.SearchResponse
		decode(t, resp, &body)
		assert.Equal(t, "golang", body.Query)
		require.Len(t, body.Results, 1)
		assert.Equal(t, "abc", body.Results[0].SubmissionID)
		assert.Equal(t, "Go developer", body.Results[0].Snippet)
	})

	t.Run("missing query", func(t *testing.T) {
		ts := newTestServer(t, stubParser{}, stubIndex{})

		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/search", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("limit out of range", func(t *testing.T) {
		ts := newTestServer(t, stubParser{}, stubIndex{})

		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/search?q=go&limit=500", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("backend down", func(t *testing.T) {
		ts := newTestServer(t, stubParser{}, stubIndex{err: errors.New("qdrant unavailable")})

		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/search?q=go", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	})
}
