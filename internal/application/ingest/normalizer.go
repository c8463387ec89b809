// Package ingest 实现诗词语料的导入流程：结构适配、规范化、朝代推断、向量化与分批入库
package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/longbridgeapp/opencc"
)

// 字段长度上限（按字符计）
const (
	TitleLimit = 500
	NameLimit  = 200
	// MinSentenceRunes 句子入库的最短长度
	MinSentenceRunes = 4
)

var (
	noisePattern    = regexp.MustCompile(`\[\d+\]|【.*?】|（.*?）|\(.*?\)|<.*?>`)
	sentencePattern = regexp.MustCompile(`[。！？]`)
)

// Converter 繁简转换接口，*opencc.OpenCC 满足该接口
type Converter interface {
	Convert(in string) (string, error)
}

// Normalizer 文本规范化器
type Normalizer struct {
	cc Converter
}

// NewNormalizer 创建使用 OpenCC t2s 配置的规范化器
func NewNormalizer() (*Normalizer, error) {
	cc, err := opencc.New("t2s")
	if err != nil {
		return nil, fmt.Errorf("failed to init opencc t2s: %w", err)
	}
	return &Normalizer{cc: cc}, nil
}

// NewNormalizerWith 使用指定转换器创建规范化器
func NewNormalizerWith(cc Converter) *Normalizer {
	return &Normalizer{cc: cc}
}

// Convert 繁体转简体，转换失败时原样返回
func (n *Normalizer) Convert(s string) string {
	if n == nil || n.cc == nil || s == "" {
		return s
	}
	out, err := n.cc.Convert(s)
	if err != nil {
		return s
	}
	return out
}

// Clean 去除首尾空白、转简体并按字符数截断
func (n *Normalizer) Clean(s string, limit int) string {
	return truncateRunes(n.Convert(strings.TrimSpace(s)), limit)
}

// SplitSentences 去噪、去空白后按句末标点切分，只保留不少于 4 个字符的句子
func SplitSentences(text string) []string {
	cleaned := noisePattern.ReplaceAllString(text, "")
	cleaned = stripSpaces(cleaned)

	parts := sentencePattern.Split(cleaned, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) >= MinSentenceRunes {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
