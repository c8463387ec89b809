package ingest

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"poetry-search/internal/domain/entity"
)

type identityConverter struct{}

func (identityConverter) Convert(s string) (string, error) { return s, nil }

func newTestNormalizer() *Normalizer {
	return NewNormalizerWith(identityConverter{})
}

// memStore 内存版仓储，事务失败时恢复快照
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	dynasties map[string]int64
	authors   map[entity.AuthorKey]int64
	poems     []entity.Poem
	lines     []entity.Line
	lineErr   error
}

func newMemStore() *memStore {
	return &memStore{
		dynasties: make(map[string]int64),
		authors:   make(map[entity.AuthorKey]int64),
	}
}

type memSnapshot struct {
	nextID    int64
	dynasties map[string]int64
	authors   map[entity.AuthorKey]int64
	poems     int
	lines     int
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snap := memSnapshot{nextID: s.nextID, poems: len(s.poems), lines: len(s.lines),
		dynasties: make(map[string]int64), authors: make(map[entity.AuthorKey]int64)}
	for k, v := range s.dynasties {
		snap.dynasties[k] = v
	}
	for k, v := range s.authors {
		snap.authors[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.nextID = snap.nextID
		s.dynasties = snap.dynasties
		s.authors = snap.authors
		s.poems = s.poems[:snap.poems]
		s.lines = s.lines[:snap.lines]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) EnsureByNames(_ context.Context, names []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(names))
	for _, n := range names {
		id, ok := s.dynasties[n]
		if !ok {
			s.nextID++
			id = s.nextID
			s.dynasties[n] = id
		}
		out[n] = id
	}
	return out, nil
}

func (s *memStore) EnsureAuthors(_ context.Context, keys []entity.AuthorKey) (map[entity.AuthorKey]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[entity.AuthorKey]int64, len(keys))
	for _, k := range keys {
		id, ok := s.authors[k]
		if !ok {
			s.nextID++
			id = s.nextID
			s.authors[k] = id
		}
		out[k] = id
	}
	return out, nil
}

func (s *memStore) dynastyName(id int64) string {
	for name, did := range s.dynasties {
		if did == id {
			return name
		}
	}
	return ""
}

type memPoemRepo struct{ s *memStore }

func (r memPoemRepo) CreateBatch(_ context.Context, poems []*entity.Poem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range poems {
		r.s.nextID++
		p.ID = r.s.nextID
		r.s.poems = append(r.s.poems, *p)
	}
	return nil
}

type memLineRepo struct{ s *memStore }

func (r memLineRepo) CreateBatch(_ context.Context, lines []*entity.Line) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.lineErr != nil {
		return r.s.lineErr
	}
	for _, l := range lines {
		r.s.nextID++
		l.ID = r.s.nextID
		r.s.lines = append(r.s.lines, *l)
	}
	return nil
}

// runeEmbedder 以字符数作为一维向量；failing 时全部缺失
type runeEmbedder struct {
	mu      sync.Mutex
	calls   int
	failing bool
}

func (e *runeEmbedder) Fetch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	if e.failing {
		return out, errors.New("embedding service unavailable")
	}
	for i, t := range texts {
		out[i] = []float32{float32(utf8.RuneCountInString(t))}
	}
	return out, nil
}

func newTestLoader(store *memStore, emb Embedder) *Loader {
	return NewLoader(store, store, store, memPoemRepo{store}, memLineRepo{store}, NewOrchestrator(emb, 10, 4))
}
