// Package entity 定义领域实体
package entity

// 朝代兜底取值
const (
	DynastyUnknown   = "未知"
	DynastyPreQin    = "先秦"
	DynastyAncient   = "古代"
	AuthorAnonymous  = "佚名"
	AuthorConfucius  = "孔子"
	TitleUntitled    = "无题"
	TitleUnknownPart = "未知篇章"
)

// Dynasty 朝代，首次出现时创建，之后不再修改
type Dynasty struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"type:varchar(200);uniqueIndex;not null"`
}

func (Dynasty) TableName() string {
	return "dynasties"
}
