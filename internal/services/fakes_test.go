package services

import (
	"context"
	"errors"
	"mime/multipart"
	"sort"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/cv-validator/internal/models"
	"alfredoptarigan/cv-validator/internal/repositories"
)

type memSubmissionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*models.Submission
}

func newMemSubmissionRepo(subs ...*models.Submission) *memSubmissionRepo {
	r := &memSubmissionRepo{subs: make(map[uuid.UUID]*models.Submission)}
	for _, s := range subs {
		r.subs[s.ID] = s
	}
	return r
}

func (r *memSubmissionRepo) get(id uuid.UUID) models.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.subs[id]
}

func (r *memSubmissionRepo) Create(sub *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *memSubmissionRepo) FindByID(id uuid.UUID) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSubmissionRepo) transition(id uuid.UUID, version int, from models.ValidationStatus, apply func(*models.Submission)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return repositories.ErrSubmissionNotFound
	}
	if s.Version != version || s.Status != from {
		return repositories.ErrStaleSubmission
	}
	apply(s)
	s.Version++
	return nil
}

func (r *memSubmissionRepo) MarkValidating(id uuid.UUID, version int) error {
	return r.transition(id, version, models.StatusPending, func(s *models.Submission) {
		s.Status = models.StatusValidating
	})
}

func (r *memSubmissionRepo) Complete(id uuid.UUID, version int, data *repositories.ValidationUpdateData) error {
	return r.transition(id, version, models.StatusValidating, func(s *models.Submission) {
		s.Status = models.StatusForOutcome(data.Outcome)
		s.ValidationResult = data.Result
		s.ValidationErrors = data.Errors
	})
}

func (r *memSubmissionRepo) Fail(id uuid.UUID, version int, errorMsg string) error {
	return r.transition(id, version, models.StatusValidating, func(s *models.Submission) {
		s.Status = models.StatusFailed
		s.ValidationResult = nil
		s.ValidationErrors = models.StringList{errorMsg}
	})
}

func (r *memSubmissionRepo) FindPending(limit int) ([]models.Submission, error) {
	return r.findByStatus(models.StatusPending, limit), nil
}

func (r *memSubmissionRepo) FindValidated(limit, offset int) ([]models.Submission, error) {
	all := r.findByStatus(models.StatusValidated, 0)
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memSubmissionRepo) findByStatus(status models.ValidationStatus, limit int) []models.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Submission
	for _, s := range r.subs {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type memDocumentRepo struct {
	docs map[uuid.UUID]*models.Document
}

func newMemDocumentRepo(docs ...*models.Document) *memDocumentRepo {
	r := &memDocumentRepo{docs: make(map[uuid.UUID]*models.Document)}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *memDocumentRepo) Create(d *models.Document) error {
	r.docs[d.ID] = d
	return nil
}

func (r *memDocumentRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	d, ok := r.docs[id]
	if !ok {
		return nil, repositories.ErrDocumentNotFound
	}
	return d, nil
}

func (r *memDocumentRepo) Delete(id uuid.UUID) error {
	delete(r.docs, id)
	return nil
}

type memStorage struct {
	files map[string][]byte
}

func (s *memStorage) SaveFile(*multipart.FileHeader, string) (string, string, error) {
	return "", "", errors.New("not supported")
}
func (s *memStorage) GetFilePath(filename string) string { return filename }
func (s *memStorage) DeleteFile(string) error            { return nil }
func (s *memStorage) EnsureUploadDir() error             { return nil }
func (s *memStorage) ReadDocument(location string) ([]byte, error) {
	data, ok := s.files[location]
	if !ok {
		return nil, errors.New("failed to read document: no such file")
	}
	return data, nil
}

type stubComparer struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	prompt   string
	mimeType string
	temp     float32
}

func (c *stubComparer) CompareDocument(ctx context.Context, document []byte, mimeType, prompt string, temperature float32) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.prompt = prompt
	c.mimeType = mimeType
	c.temp = temperature
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.reply, c.err
}

type stubIndexer struct {
	mu      sync.Mutex
	indexed []string
	err     error
}

func (i *stubIndexer) IndexDocument(_ context.Context, submissionID, _ string, _ []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, submissionID)
	return 1, i.err
}

func (i *stubIndexer) Search(context.Context, string, int) ([]SearchResult, error) {
	return nil, nil
}
