package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"poetry-search/internal/domain/entity"
)

// PoemRecord 规范化后的待入库作品
type PoemRecord struct {
	Title   string
	Author  string
	Dynasty string
	Content string
}

// Sentences 切分后的句子
func (r PoemRecord) Sentences() []string {
	return SplitSentences(r.Content)
}

// RecordBuilder 将原始记录规范化为 PoemRecord
type RecordBuilder struct {
	norm *Normalizer
	prov *Provenance
}

// NewRecordBuilder 创建记录构建器
func NewRecordBuilder(norm *Normalizer, prov *Provenance) *RecordBuilder {
	return &RecordBuilder{norm: norm, prov: prov}
}

// BuildRecord 规范化一条记录，正文为空时丢弃
func (b *RecordBuilder) BuildRecord(raw RawRecord, path, fallbackAuthor string) (PoemRecord, bool) {
	title := entity.TitleUntitled
	if v, ok := raw["title"]; ok && v != nil {
		title = b.norm.Clean(textOf(v), TitleLimit)
	}
	if title == "" {
		title = entity.TitleUntitled
	}

	authorVal, ok := raw["author"]
	if !ok {
		authorVal = fallbackAuthor
	}
	author := ""
	if truthy(authorVal) {
		author = b.norm.Clean(textOf(authorVal), NameLimit)
	}
	if author == "" {
		author = b.norm.Clean(ResolveAuthor(path), NameLimit)
	}

	dynasty := ""
	if v, ok := raw["dynasty"]; ok && v != nil {
		dynasty = b.norm.Clean(textOf(v), NameLimit)
	}
	if dynasty == "" {
		dynasty = b.prov.ResolveDynasty(author, path)
	}

	content := stripSpaces(b.norm.Convert(joinParagraphs(raw)))
	if content == "" {
		return PoemRecord{}, false
	}

	return PoemRecord{
		Title:   title,
		Author:  author,
		Dynasty: dynasty,
		Content: content,
	}, true
}

// joinParagraphs 拼接 paragraphs，缺省时使用 content；单个字符串视为一段
func joinParagraphs(raw RawRecord) string {
	v, ok := raw["paragraphs"]
	if !ok {
		v = raw["content"]
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var sb strings.Builder
		for _, item := range t {
			if item == nil {
				continue
			}
			sb.WriteString(textOf(item))
		}
		return sb.String()
	default:
		return ""
	}
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func nonEmptyText(v any) (string, bool) {
	if !truthy(v) {
		return "", false
	}
	s := strings.TrimSpace(textOf(v))
	return s, s != ""
}
