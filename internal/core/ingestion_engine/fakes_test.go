package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/markdave123-py/docingest/internal/models"
)

// countingProvider embeds each text as [len(words), first byte, call#].
type countingProvider struct {
	mu     sync.Mutex
	calls  int
	texts  []string
	failOn int // 1-based call that fails; 0 never
	short  bool
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.texts = append(p.texts, texts...)
	p.mu.Unlock()

	if p.failOn == call {
		return nil, errors.New("model unavailable")
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		var first float32
		if t != "" {
			first = float32(t[0])
		}
		out = append(out, []float32{float32(len(strings.Fields(t))), first, float32(call)})
	}
	if p.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *countingProvider) encoded() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.texts)
}

// mapCache is an in-memory Cache; broken makes it behave like an
// unreachable backend.
type mapCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	broken bool
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Name() string { return "map" }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, false
	}
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return models.ErrCacheUnavailable
	}
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) keysWithPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

type fakeStore struct {
	mu    sync.Mutex
	calls int
	docs  map[string]models.StorableDocument
	err   error
}

func newFakeStore() *fakeStore { return &fakeStore{docs: map[string]models.StorableDocument{}} }

func (s *fakeStore) AddDocuments(_ context.Context, docs []models.StorableDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return nil
}

func (s *fakeStore) DeleteDocument(_ context.Context, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.docs {
		if d.Fingerprint == fp {
			delete(s.docs, id)
		}
	}
	return nil
}

func (s *fakeStore) Health(context.Context) error { return s.err }

type fakeMeta struct {
	mu       sync.Mutex
	meta     map[string]models.DocumentMetadata
	status   map[string]models.ProcessingStatus
	history  map[string][]models.Status
	saveErr  error
	statusFn func(models.Status)
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{
		meta:    map[string]models.DocumentMetadata{},
		status:  map[string]models.ProcessingStatus{},
		history: map[string][]models.Status{},
	}
}

func (m *fakeMeta) SaveMetadata(_ context.Context, meta *models.DocumentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.meta[meta.Fingerprint] = *meta
	return nil
}

func (m *fakeMeta) GetMetadata(_ context.Context, fp string) (*models.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.meta[fp]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &meta, nil
}

func (m *fakeMeta) SetStatus(_ context.Context, fp string, st models.Status, msg string) error {
	m.mu.Lock()
	m.status[fp] = models.ProcessingStatus{Fingerprint: fp, Status: st, Message: msg, UpdatedAt: time.Now()}
	m.history[fp] = append(m.history[fp], st)
	fn := m.statusFn
	m.mu.Unlock()
	if fn != nil {
		fn(st)
	}
	return nil
}

func (m *fakeMeta) GetStatus(_ context.Context, fp string) (*models.ProcessingStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[fp]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &st, nil
}

func (m *fakeMeta) ListByUser(_ context.Context, userID string) ([]models.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentMetadata
	for _, meta := range m.meta {
		if meta.UserID == userID {
			out = append(out, meta)
		}
	}
	return out, nil
}

func (m *fakeMeta) DeleteMetadata(_ context.Context, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.meta, fp)
	delete(m.status, fp)
	return nil
}

func (m *fakeMeta) statusOf(fp string) models.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[fp].Status
}

type recordingMonitor struct {
	mu     sync.Mutex
	events []string
	errors []string
	hits   map[string]int
	misses map[string]int
}

func newRecordingMonitor() *recordingMonitor {
	return &recordingMonitor{hits: map[string]int{}, misses: map[string]int{}}
}

func (r *recordingMonitor) LogEvent(name string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingMonitor) LogError(name, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, fmt.Sprintf("%s: %s", name, message))
}

func (r *recordingMonitor) RecordCacheHit(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[category]++
}

func (r *recordingMonitor) RecordCacheMiss(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses[category]++
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *fakeArchive) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, data); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.keys = append(a.keys, bucket+"/"+key)
	return "s3://" + bucket + "/" + key, nil
}

func (a *fakeArchive) DeleteFile(context.Context, string, string) error { return nil }

func (a *fakeArchive) GetFile(context.Context, string, string) ([]byte, error) { return nil, nil }

// stubExtractor returns the bytes as text, or a fixed value when set.
type stubExtractor struct {
	text *string
}

func (s stubExtractor) Extract(_ context.Context, data []byte, _ string) string {
	if s.text != nil {
		return *s.text
	}
	return strings.TrimSpace(string(data))
}

type failingSplitter struct{}

func (failingSplitter) Split(string) ([]string, error) { return nil, errors.New("no model") }
