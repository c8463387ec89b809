package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"poetry-search/internal/domain/entity"
	"poetry-search/pkg/logger"
)

type keywordRule struct {
	keyword string
	value   string
}

// 典籍名优先于朝代关键字
var classicalRules = []keywordRule{
	{"诗经", entity.DynastyPreQin},
	{"楚辞", entity.DynastyPreQin},
	{"论语", entity.DynastyPreQin},
	{"孟子", entity.DynastyPreQin},
	{"大学", entity.DynastyPreQin},
	{"中庸", entity.DynastyPreQin},
	{"四书五经", entity.DynastyPreQin},
	{"蒙学", entity.DynastyAncient},
	{"shijing", entity.DynastyPreQin},
	{"chuci", entity.DynastyPreQin},
	{"lunyu", entity.DynastyPreQin},
	{"mengzi", entity.DynastyPreQin},
	{"daxue", entity.DynastyPreQin},
	{"zhongyong", entity.DynastyPreQin},
	{"sishuwujing", entity.DynastyPreQin},
	{"mengxue", entity.DynastyAncient},
}

var periodRules = []keywordRule{
	{"tang", "唐代"},
	{"quan_tang_shi", "唐代"},
	{"song", "宋代"},
	{"yuan", "元代"},
	{"yuanqu", "元代"},
	{"ming", "明代"},
	{"qing", "清代"},
	{"wudai", "五代十国"},
	{"huajianji", "五代十国"},
	{"nantang", "五代十国"},
	{"jin", "两晋"},
	{"nanbeichao", "南北朝"},
	{"sui", "隋代"},
	{"caocao", "两汉"},
	{"jianan", "两汉"},
	{"shijing", entity.DynastyPreQin},
	{"chuci", entity.DynastyPreQin},
	{"sishuwujing", entity.DynastyPreQin},
	{"lunyu", entity.DynastyPreQin},
}

var authorPathRules = []keywordRule{
	{"caocao", "曹操"},
	{"nalanxingde", "纳兰性德"},
	{"shijing", entity.AuthorAnonymous},
	{"sishuwujing/lunyu", entity.AuthorConfucius},
}

// DocumentReader 读取并解析单个语料文件
type DocumentReader func(path string) (any, error)

// Provenance 作者到最常见朝代的映射，预扫描后只读
type Provenance struct {
	authorDynasty map[string]string
}

type dynastyTally struct {
	counts map[string]int
	order  []string
}

// BuildProvenance 预扫描全部文件，统计每位作者出现最多的朝代，次数相同取先出现者。
// 无法读取或解析的文件直接跳过。
func BuildProvenance(ctx context.Context, files []string, read DocumentReader, n *Normalizer) *Provenance {
	tallies := make(map[string]*dynastyTally)
	var authorOrder []string

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		doc, err := read(path)
		if err != nil {
			logger.Debug(ctx, "provenance pre-scan skipped file", "path", path, "error", err.Error())
			continue
		}
		for _, rec := range Extract(doc).Records {
			author, okA := nonEmptyText(rec["author"])
			dynasty, okD := nonEmptyText(rec["dynasty"])
			if !okA || !okD {
				continue
			}
			author = n.Clean(author, NameLimit)
			dynasty = n.Clean(dynasty, NameLimit)
			if author == "" || dynasty == "" {
				continue
			}

			t, ok := tallies[author]
			if !ok {
				t = &dynastyTally{counts: make(map[string]int)}
				tallies[author] = t
				authorOrder = append(authorOrder, author)
			}
			if _, seen := t.counts[dynasty]; !seen {
				t.order = append(t.order, dynasty)
			}
			t.counts[dynasty]++
		}
	}

	table := make(map[string]string, len(tallies))
	for _, author := range authorOrder {
		t := tallies[author]
		best, bestCount := "", 0
		for _, d := range t.order {
			if t.counts[d] > bestCount {
				best, bestCount = d, t.counts[d]
			}
		}
		table[author] = best
	}
	return &Provenance{authorDynasty: table}
}

// NewProvenance 基于已知映射创建
func NewProvenance(table map[string]string) *Provenance {
	if table == nil {
		table = map[string]string{}
	}
	return &Provenance{authorDynasty: table}
}

// Size 映射中的作者数
func (p *Provenance) Size() int {
	return len(p.authorDynasty)
}

// ResolveDynasty 依次使用作者映射、典籍路径、朝代路径关键字推断朝代，都未命中时为未知
func (p *Provenance) ResolveDynasty(author, path string) string {
	if d, ok := p.authorDynasty[author]; ok {
		return d
	}
	slashed := normalizePath(path)
	if d, ok := matchRule(classicalRules, slashed); ok {
		return d
	}
	if d, ok := matchRule(periodRules, slashed); ok {
		return d
	}
	return entity.DynastyUnknown
}

// ResolveAuthor 根据路径推断作者，未命中时为佚名
func ResolveAuthor(path string) string {
	if a, ok := matchRule(authorPathRules, normalizePath(path)); ok {
		return a
	}
	return entity.AuthorAnonymous
}

func normalizePath(path string) string {
	return strings.ToLower(filepath.ToSlash(path))
}

func matchRule(rules []keywordRule, s string) (string, bool) {
	for _, r := range rules {
		if strings.Contains(s, r.keyword) {
			return r.value, true
		}
	}
	return "", false
}
