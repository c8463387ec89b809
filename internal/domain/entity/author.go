package entity

// Author 作者，(name, dynasty_id) 唯一
type Author struct {
	ID        int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string `json:"name" gorm:"type:varchar(200);not null;uniqueIndex:uq_author_dynasty"`
	DynastyID int64  `json:"dynasty_id" gorm:"not null;uniqueIndex:uq_author_dynasty"`
}

func (Author) TableName() string {
	return "authors"
}

// AuthorKey 作者唯一键，对应 uq_author_dynasty
type AuthorKey struct {
	Name      string
	DynastyID int64
}

// Key 返回作者唯一键
func (a *Author) Key() AuthorKey {
	return AuthorKey{Name: a.Name, DynastyID: a.DynastyID}
}
