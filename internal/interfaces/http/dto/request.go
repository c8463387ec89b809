package dto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// PageRequest 分页参数，Limit 为 0 表示使用默认值
type PageRequest struct {
	Limit  int
	Offset int
}

// LexicalSearchRequest 关键词检索请求
type LexicalSearchRequest struct {
	PageRequest
	Keyword string
}

// SemanticSearchRequest 语义检索请求
type SemanticSearchRequest struct {
	PageRequest
	Keywords []string
}

// BindPage 从查询参数绑定 limit/offset；显式传入的 limit 必须 >= 1
func BindPage(c *gin.Context) (PageRequest, error) {
	var req PageRequest
	if s, ok := c.GetQuery("limit"); ok {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || v < 1 {
			return req, fmt.Errorf("limit must be a positive integer")
		}
		req.Limit = v
	}
	if s, ok := c.GetQuery("offset"); ok {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || v < 0 {
			return req, fmt.Errorf("offset must be a non-negative integer")
		}
		req.Offset = v
	}
	return req, nil
}

// BindLexicalSearch 绑定 GET /search 参数
func BindLexicalSearch(c *gin.Context) (LexicalSearchRequest, error) {
	page, err := BindPage(c)
	if err != nil {
		return LexicalSearchRequest{}, err
	}
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		return LexicalSearchRequest{}, fmt.Errorf("keyword is required")
	}
	return LexicalSearchRequest{PageRequest: page, Keyword: keyword}, nil
}

// BindSemanticSearch 绑定 GET /search/semantic 参数，keywords 以英文逗号分隔
func BindSemanticSearch(c *gin.Context) (SemanticSearchRequest, error) {
	page, err := BindPage(c)
	if err != nil {
		return SemanticSearchRequest{}, err
	}
	keywords := SplitKeywords(c.Query("keywords"))
	if len(keywords) == 0 {
		return SemanticSearchRequest{}, fmt.Errorf("keywords is required")
	}
	return SemanticSearchRequest{PageRequest: page, Keywords: keywords}, nil
}

// SplitKeywords 按逗号拆分并去除空白项
func SplitKeywords(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
