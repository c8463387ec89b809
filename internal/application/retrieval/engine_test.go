package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-search/internal/domain/entity"
)

type fakeSearchRepo struct {
	lexicalHits  []*entity.PoemHit
	lexicalTotal int64
	semanticHits []*entity.PoemHit
	embedded     int64
	err          error

	gotKeyword string
	gotQuery   []float32
	gotLimit   int
	gotOffset  int
}

func (r *fakeSearchRepo) Lexical(_ context.Context, keyword string, limit, offset int) ([]*entity.PoemHit, int64, error) {
	r.gotKeyword, r.gotLimit, r.gotOffset = keyword, limit, offset
	return r.lexicalHits, r.lexicalTotal, r.err
}

func (r *fakeSearchRepo) Semantic(_ context.Context, query []float32, limit, offset int) ([]*entity.PoemHit, error) {
	r.gotQuery, r.gotLimit, r.gotOffset = query, limit, offset
	return r.semanticHits, r.err
}

func (r *fakeSearchRepo) CountEmbeddedPoems(context.Context) (int64, error) {
	return r.embedded, nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	got     []string
}

func (e *fakeEmbedder) Fetch(_ context.Context, texts []string) ([][]float32, error) {
	e.got = texts
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vectors[t]
	}
	return out, e.err
}

func newTestEngine(repo *fakeSearchRepo, emb Embedder) *Engine {
	return NewEngine(repo, emb, Config{DefaultLimit: 10, MaxLimit: 100, SemanticTotalCap: 1000})
}

func TestLexical_TrimsKeywordAndDefaultsLimit(t *testing.T) {
	repo := &fakeSearchRepo{
		lexicalHits:  []*entity.PoemHit{{ID: 1, Title: "静夜思", Score: 0.5}},
		lexicalTotal: 1,
	}
	out, err := newTestEngine(repo, nil).Lexical(context.Background(), LexicalQuery{Keyword: "  明月 "})
	require.NoError(t, err)

	assert.Equal(t, "明月", repo.gotKeyword)
	assert.Equal(t, 10, repo.gotLimit)
	assert.Equal(t, 0, repo.gotOffset)
	assert.Equal(t, int64(1), out.Total)
	assert.Len(t, out.Results, 1)
	assert.GreaterOrEqual(t, out.QueryTimeMs, 0.0)
}

func TestLexical_NoMatchesReturnsEmptySlice(t *testing.T) {
	out, err := newTestEngine(&fakeSearchRepo{}, nil).Lexical(context.Background(), LexicalQuery{Keyword: "不存在"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Total)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}

func TestLexical_InvalidParams(t *testing.T) {
	engine := newTestEngine(&fakeSearchRepo{}, nil)
	cases := []LexicalQuery{
		{Keyword: "   "},
		{Keyword: "月", Limit: 101},
		{Keyword: "月", Limit: -1},
		{Keyword: "月", Offset: -5},
	}
	for _, q := range cases {
		_, err := engine.Lexical(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidQuery, "%+v", q)
	}
}

func TestLexical_RepositoryError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := newTestEngine(&fakeSearchRepo{err: boom}, nil).Lexical(context.Background(), LexicalQuery{Keyword: "月"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidQuery)
}

func TestSemantic_MeanVectorAndRoundedScore(t *testing.T) {
	repo := &fakeSearchRepo{
		semanticHits: []*entity.PoemHit{
			{ID: 7, Score: 0.912345},
			{ID: 3, Score: 0.81234},
		},
		embedded: 42,
	}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"明月": {1, 0, 2},
		"思乡": {3, 2, 0},
	}}

	out, err := newTestEngine(repo, emb).Semantic(context.Background(), SemanticQuery{
		Phrases: []string{" 明月", "", "思乡 "},
		Limit:   5,
		Offset:  10,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"明月", "思乡"}, emb.got)
	assert.Equal(t, []float32{2, 1, 1}, repo.gotQuery)
	assert.Equal(t, 5, repo.gotLimit)
	assert.Equal(t, 10, repo.gotOffset)
	assert.Equal(t, int64(42), out.Total)
	require.Len(t, out.Results, 2)
	assert.Equal(t, 0.9123, out.Results[0].Score)
	assert.Equal(t, 0.8123, out.Results[1].Score)
}

func TestSemantic_MissingPhraseVectorIgnored(t *testing.T) {
	repo := &fakeSearchRepo{embedded: 3}
	emb := &fakeEmbedder{vectors: map[string][]float32{"明月": {2, 4}}}

	_, err := newTestEngine(repo, emb).Semantic(context.Background(), SemanticQuery{Phrases: []string{"明月", "未知"}})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4}, repo.gotQuery)
}

func TestSemantic_TotalCapped(t *testing.T) {
	repo := &fakeSearchRepo{embedded: 250000}
	emb := &fakeEmbedder{vectors: map[string][]float32{"月": {1}}}

	out, err := newTestEngine(repo, emb).Semantic(context.Background(), SemanticQuery{Phrases: []string{"月"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), out.Total)
}

func TestSemantic_EmbeddingUnavailable(t *testing.T) {
	repo := &fakeSearchRepo{}
	emb := &fakeEmbedder{err: errors.New("timeout")}

	_, err := newTestEngine(repo, emb).Semantic(context.Background(), SemanticQuery{Phrases: []string{"月"}})
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Nil(t, repo.gotQuery)
}

func TestSemantic_Disabled(t *testing.T) {
	engine := newTestEngine(&fakeSearchRepo{}, nil)
	assert.False(t, engine.SemanticEnabled())

	_, err := engine.Semantic(context.Background(), SemanticQuery{Phrases: []string{"月"}})
	assert.ErrorIs(t, err, ErrSemanticDisabled)
}

func TestSemantic_InvalidParams(t *testing.T) {
	engine := newTestEngine(&fakeSearchRepo{}, &fakeEmbedder{})

	_, err := engine.Semantic(context.Background(), SemanticQuery{Phrases: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = engine.Semantic(context.Background(), SemanticQuery{Phrases: []string{"月"}, Limit: 1000})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestNewEngine_NormalizesConfig(t *testing.T) {
	engine := NewEngine(&fakeSearchRepo{}, nil, Config{DefaultLimit: 500, MaxLimit: 50})
	assert.Equal(t, 10, engine.cfg.DefaultLimit)
	assert.Equal(t, 50, engine.cfg.MaxLimit)
	assert.Equal(t, 1000, engine.cfg.SemanticTotalCap)
}

func TestMeanVector(t *testing.T) {
	assert.Nil(t, meanVector(nil))
	assert.Nil(t, meanVector([][]float32{nil, {}}))
	assert.Equal(t, []float32{1, 2}, meanVector([][]float32{{1, 2}}))
	assert.Equal(t, []float32{2, 3}, meanVector([][]float32{{1, 2}, nil, {3, 4}, {9}}))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 0.1235, roundTo(0.12345678, 4))
	assert.Equal(t, 12.35, roundTo(12.3456, 2))
	assert.Equal(t, -0.5, roundTo(-0.49999, 4))
}
