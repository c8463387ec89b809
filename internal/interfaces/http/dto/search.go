package dto

import (
	"poetry-search/internal/application/retrieval"
)

// PoemResult 单条检索结果
type PoemResult struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Author  string  `json:"author"`
	Dynasty string  `json:"dynasty"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResponse 检索响应
type SearchResponse struct {
	Total       int64        `json:"total"`
	Results     []PoemResult `json:"results"`
	QueryTimeMs float64      `json:"query_time_ms"`
}

// ToSearchResponse 转换检索结果，结果为空时 results 为 []
func ToSearchResponse(out *retrieval.SearchOutput) SearchResponse {
	resp := SearchResponse{
		Total:       out.Total,
		Results:     make([]PoemResult, 0, len(out.Results)),
		QueryTimeMs: out.QueryTimeMs,
	}
	for _, h := range out.Results {
		if h == nil {
			continue
		}
		resp.Results = append(resp.Results, PoemResult{
			ID:      h.ID,
			Title:   h.Title,
			Author:  h.Author,
			Dynasty: h.Dynasty,
			Content: h.Content,
			Score:   h.Score,
		})
	}
	return resp
}
