package ingest

import (
	"fmt"
	"strings"

	"poetry-search/internal/domain/entity"
)

// Variant 文档结构类型
type Variant string

const (
	VariantList                Variant = "list"
	VariantAnthology           Variant = "anthology"
	VariantChapteredParagraphs Variant = "chaptered_paragraphs"
	VariantChapters            Variant = "chapters"
	VariantSections            Variant = "sections"
	VariantSingle              Variant = "single"
	VariantText                Variant = "text"
	VariantProbe               Variant = "probe"
	VariantKeyword             Variant = "keyword"
	VariantNone                Variant = "none"
)

// 字段探测顺序
var probeFields = []string{"content", "paragraphs", "text", "verses", "lines"}

var (
	confucianKeywords = []string{"论语", "大学", "中庸", "孟子"}
	anthologyKeywords = []string{"诗经", "楚辞"}
)

// RawRecord 结构适配后的原始记录
type RawRecord map[string]any

// Extraction 单个文档的提取结果
type Extraction struct {
	Records        []RawRecord
	FallbackAuthor string
	Variant        Variant
}

// Extract 从任意结构的文档中提取记录，无法识别时返回空结果，不会 panic
func Extract(doc any) (ext Extraction) {
	defer func() {
		if r := recover(); r != nil {
			ext = Extraction{Variant: VariantNone}
		}
	}()

	switch v := doc.(type) {
	case []any:
		records := make([]RawRecord, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, RawRecord(m))
			}
		}
		return Extraction{Records: records, Variant: VariantList}
	case map[string]any:
		return extractMapping(v)
	default:
		return Extraction{Variant: VariantNone}
	}
}

func extractMapping(doc map[string]any) Extraction {
	fallback, _ := doc["author"].(string)
	fallbackVal := doc["author"]

	records, variant := extractKnownShape(doc, fallback, fallbackVal)
	if len(records) == 0 {
		records, variant = probeFieldsFallback(doc, fallbackVal)
	}
	if len(records) == 0 {
		records, variant = sniffKeywords(doc)
	}
	if len(records) == 0 {
		variant = VariantNone
	}
	return Extraction{Records: records, FallbackAuthor: fallback, Variant: variant}
}

func extractKnownShape(doc map[string]any, fallback string, fallbackVal any) ([]RawRecord, Variant) {
	if items, ok := sequence(doc, "content"); ok {
		var records []RawRecord
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if content, ok := sequence(m, "content"); ok {
				author := any(entity.AuthorAnonymous)
				if fallback != "" {
					author = fallback
				}
				records = append(records, RawRecord{
					"title":      valueOr(m, "title", entity.TitleUntitled),
					"author":     valueOr(m, "author", author),
					"dynasty":    valueOr(m, "dynasty", entity.DynastyUnknown),
					"paragraphs": content,
				})
				continue
			}
			records = append(records, RawRecord(m))
		}
		return records, VariantAnthology
	}

	if paragraphs, ok := sequence(doc, "paragraphs"); ok {
		chapter, hasChapter := doc["chapter"]
		if !hasChapter {
			return []RawRecord{RawRecord(doc)}, VariantChapteredParagraphs
		}
		author := any(entity.AuthorConfucius)
		if fallback != "" {
			author = fallback
		}
		records := make([]RawRecord, 0, len(paragraphs))
		for _, p := range paragraphs {
			records = append(records, RawRecord{
				"title":      chapter,
				"author":     author,
				"dynasty":    entity.DynastyPreQin,
				"paragraphs": []any{p},
			})
		}
		return records, VariantChapteredParagraphs
	}

	if chapters, ok := sequence(doc, "chapters"); ok {
		var records []RawRecord
		for _, item := range chapters {
			ch, ok := item.(map[string]any)
			if !ok {
				continue
			}
			author := valueOr(ch, "author", fallbackVal)
			dynasty := valueOr(ch, "dynasty", doc["dynasty"])
			if paras, ok := sequence(ch, "paragraphs"); ok {
				title := ch["title"]
				if !truthy(title) {
					title = valueOr(ch, "chapter", entity.TitleUnknownPart)
				}
				for _, para := range paras {
					paragraphs := para
					if s, ok := para.(string); ok {
						paragraphs = []any{s}
					}
					records = append(records, compact(RawRecord{
						"title":      title,
						"author":     author,
						"dynasty":    dynasty,
						"paragraphs": paragraphs,
					}))
				}
				continue
			}
			records = append(records, compact(RawRecord{
				"title":      valueOr(ch, "title", entity.TitleUnknownPart),
				"author":     author,
				"dynasty":    dynasty,
				"paragraphs": valueOr(ch, "paragraphs", []any{}),
			}))
		}
		return records, VariantChapters
	}

	if sections, ok := sequence(doc, "sections"); ok {
		var records []RawRecord
		for _, item := range sections {
			sec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			records = append(records, compact(RawRecord{
				"title":      valueOr(sec, "title", valueOr(doc, "title", entity.TitleUntitled)),
				"author":     valueOr(sec, "author", fallbackVal),
				"dynasty":    valueOr(sec, "dynasty", doc["dynasty"]),
				"paragraphs": valueOr(sec, "paragraphs", valueOr(sec, "content", []any{})),
			}))
		}
		return records, VariantSections
	}

	_, hasTitle := doc["title"]
	_, hasParagraphs := doc["paragraphs"]
	_, hasContent := doc["content"]
	if hasTitle && (hasParagraphs || hasContent) {
		return []RawRecord{RawRecord(doc)}, VariantSingle
	}

	if texts, ok := sequence(doc, "text"); ok {
		var records []RawRecord
		for _, item := range texts {
			t, ok := item.(map[string]any)
			if !ok {
				continue
			}
			records = append(records, compact(RawRecord{
				"title":      valueOr(t, "title", valueOr(doc, "title", entity.TitleUntitled)),
				"author":     valueOr(t, "author", fallbackVal),
				"dynasty":    valueOr(t, "dynasty", valueOr(doc, "dynasty", entity.DynastyUnknown)),
				"paragraphs": valueOr(t, "paragraphs", valueOr(t, "content", []any{})),
			}))
		}
		return records, VariantText
	}

	return nil, VariantNone
}

// probeFieldsFallback 取第一个存在的序列字段，首元素为字符串时整体作为一条记录
func probeFieldsFallback(doc map[string]any, fallbackVal any) ([]RawRecord, Variant) {
	for _, field := range probeFields {
		items, ok := sequence(doc, field)
		if !ok {
			continue
		}
		if len(items) > 0 {
			if _, isString := items[0].(string); isString {
				return []RawRecord{compact(RawRecord{
					"title":      valueOr(doc, "title", entity.TitleUntitled),
					"author":     valueOr(doc, "author", fallbackVal),
					"dynasty":    valueOr(doc, "dynasty", entity.DynastyUnknown),
					"paragraphs": items,
				})}, VariantProbe
			}
		}
		break
	}
	return nil, VariantNone
}

// sniffKeywords 根据文档文本中的典籍名识别儒家经典与诗经楚辞
func sniffKeywords(doc map[string]any) ([]RawRecord, Variant) {
	rendered := strings.ToLower(fmt.Sprint(doc))

	if containsAny(rendered, confucianKeywords) {
		if paragraphs, ok := sequence(doc, "paragraphs"); ok {
			return []RawRecord{{
				"title":      valueOr(doc, "chapter", valueOr(doc, "title", "经典篇章")),
				"author":     entity.AuthorConfucius,
				"dynasty":    entity.DynastyPreQin,
				"paragraphs": paragraphs,
			}}, VariantKeyword
		}
		return nil, VariantNone
	}

	if containsAny(rendered, anthologyKeywords) {
		if title, ok := doc["title"]; ok {
			return []RawRecord{{
				"title":      title,
				"author":     valueOr(doc, "author", entity.AuthorAnonymous),
				"dynasty":    valueOr(doc, "dynasty", entity.DynastyPreQin),
				"paragraphs": valueOr(doc, "paragraphs", valueOr(doc, "content", []any{})),
			}}, VariantKeyword
		}
	}
	return nil, VariantNone
}

func sequence(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key].([]any)
	return v, ok
}

// valueOr 键存在时返回原值（包括 null），否则返回默认值
func valueOr(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// compact 去掉值为 nil 的字段，等价于缺省
func compact(r RawRecord) RawRecord {
	for k, v := range r {
		if v == nil {
			delete(r, k)
		}
	}
	return r
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
