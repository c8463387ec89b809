package entity

// PoemHit 检索结果行
type PoemHit struct {
	ID      int64   `json:"id" gorm:"column:id"`
	Title   string  `json:"title" gorm:"column:title"`
	Author  string  `json:"author" gorm:"column:author"`
	Dynasty string  `json:"dynasty" gorm:"column:dynasty"`
	Content string  `json:"content" gorm:"column:content"`
	Score   float64 `json:"score" gorm:"column:score"`
}

// ImportStats 导入后的统计报告
type ImportStats struct {
	Dynasties       int64            `json:"dynasties"`
	Authors         int64            `json:"authors"`
	Poems           int64            `json:"poems"`
	Lines           int64            `json:"lines"`
	LinesEmbedded   int64            `json:"lines_embedded"`
	PoemsByDynasty  []DynastyCount   `json:"poems_by_dynasty"`
	DuplicateGroups []DuplicateGroup `json:"duplicate_groups"`
}

// DynastyCount 各朝代作品数
type DynastyCount struct {
	Dynasty string `json:"dynasty" gorm:"column:dynasty"`
	Poems   int64  `json:"poems" gorm:"column:poems"`
}

// DuplicateGroup 重复导入产生的同名同作者同内容作品组
type DuplicateGroup struct {
	Title    string `json:"title" gorm:"column:title"`
	AuthorID int64  `json:"author_id" gorm:"column:author_id"`
	Copies   int64  `json:"copies" gorm:"column:copies"`
}
