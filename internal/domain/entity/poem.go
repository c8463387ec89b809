package entity

import "github.com/pgvector/pgvector-go"

// Poem 作品，FullContent 为全部句子规范化后的拼接
type Poem struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string `json:"title" gorm:"type:varchar(500);not null"`
	AuthorID    int64  `json:"author_id" gorm:"index;not null"`
	FullContent string `json:"full_content" gorm:"type:text;not null"`
}

func (Poem) TableName() string {
	return "poems"
}

// Line 句子级检索单元，只有拿到向量的句子才会入库
type Line struct {
	ID        int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	PoemID    int64           `json:"poem_id" gorm:"index;not null"`
	Content   string          `json:"content" gorm:"type:text;not null"`
	Embedding pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
}

func (Line) TableName() string {
	return "lines"
}
