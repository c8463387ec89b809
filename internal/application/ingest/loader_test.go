package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-search/internal/domain/entity"
)

func TestLoadBatch_WritesHierarchy(t *testing.T) {
	store := newMemStore()
	loader := newTestLoader(store, &runeEmbedder{})

	res, err := loader.LoadBatch(context.Background(), []PoemRecord{
		{Title: "静夜思", Author: "李白", Dynasty: "唐代", Content: "床前明月光。疑是地上霜。"},
		{Title: "月下独酌", Author: "李白", Dynasty: "唐代", Content: "花间一壶酒。独酌无相亲。"},
		{Title: "水调歌头", Author: "苏轼", Dynasty: "宋代", Content: "明月几时有？把酒问青天。"},
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Poems: 3, Lines: 6}, res)

	assert.Len(t, store.dynasties, 2)
	assert.Len(t, store.authors, 2)
	require.Len(t, store.poems, 3)
	require.Len(t, store.lines, 6)

	libai := store.authors[entity.AuthorKey{Name: "李白", DynastyID: store.dynasties["唐代"]}]
	assert.NotZero(t, libai)
	assert.Equal(t, libai, store.poems[0].AuthorID)
	assert.Equal(t, libai, store.poems[1].AuthorID)
	assert.Equal(t, "床前明月光。疑是地上霜。", store.poems[0].FullContent)

	assert.Equal(t, store.poems[0].ID, store.lines[0].PoemID)
	assert.Equal(t, "床前明月光", store.lines[0].Content)
	assert.Equal(t, []float32{5}, store.lines[0].Embedding.Slice())
	assert.Equal(t, store.poems[2].ID, store.lines[5].PoemID)
}

func TestLoadBatch_ReusesExistingReferences(t *testing.T) {
	store := newMemStore()
	loader := newTestLoader(store, &runeEmbedder{})
	rec := PoemRecord{Title: "春晓", Author: "孟浩然", Dynasty: "唐代", Content: "春眠不觉晓。"}

	_, err := loader.LoadBatch(context.Background(), []PoemRecord{rec})
	require.NoError(t, err)
	_, err = loader.LoadBatch(context.Background(), []PoemRecord{rec})
	require.NoError(t, err)

	assert.Len(t, store.dynasties, 1)
	assert.Len(t, store.authors, 1)
	assert.Len(t, store.poems, 2)
}

func TestLoadBatch_SameNameDifferentDynasty(t *testing.T) {
	store := newMemStore()
	loader := newTestLoader(store, &runeEmbedder{})

	_, err := loader.LoadBatch(context.Background(), []PoemRecord{
		{Title: "甲", Author: "无名氏", Dynasty: "唐代", Content: "一二三四。"},
		{Title: "乙", Author: "无名氏", Dynasty: "宋代", Content: "五六七八。"},
	})
	require.NoError(t, err)
	assert.Len(t, store.authors, 2)
	assert.NotEqual(t, store.poems[0].AuthorID, store.poems[1].AuthorID)
}

func TestLoadBatch_EmbeddingOutageKeepsPoems(t *testing.T) {
	store := newMemStore()
	loader := newTestLoader(store, &runeEmbedder{failing: true})

	res, err := loader.LoadBatch(context.Background(), []PoemRecord{
		{Title: "登鹳雀楼", Author: "王之涣", Dynasty: "唐代", Content: "白日依山尽。黄河入海流。"},
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Poems: 1, Lines: 0, DroppedSentences: 2}, res)
	assert.Len(t, store.poems, 1)
	assert.Empty(t, store.lines)
}

func TestLoadBatch_LineFailureRollsBack(t *testing.T) {
	store := newMemStore()
	store.lineErr = errors.New("connection reset")
	loader := newTestLoader(store, &runeEmbedder{})

	res, err := loader.LoadBatch(context.Background(), []PoemRecord{
		{Title: "江雪", Author: "柳宗元", Dynasty: "唐代", Content: "千山鸟飞绝。万径人踪灭。"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.lineErr)
	assert.Equal(t, BatchResult{}, res)
	assert.Empty(t, store.poems)
	assert.Empty(t, store.authors)
	assert.Empty(t, store.dynasties)
}

func TestLoadBatch_Empty(t *testing.T) {
	store := newMemStore()
	emb := &runeEmbedder{}
	res, err := newTestLoader(store, emb).LoadBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, res)
	assert.Zero(t, emb.calls)
}

func TestDistinctDynasties(t *testing.T) {
	got := distinctDynasties([]PoemRecord{{Dynasty: "宋代"}, {Dynasty: "唐代"}, {Dynasty: "宋代"}})
	assert.Equal(t, []string{"宋代", "唐代"}, got)
}
