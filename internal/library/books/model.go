package books

// Book は books テーブル + カテゴリ名
type Book struct {
	ID              int64
	ISBN            string
	Title           string
	Author          string
	TotalCopies     int
	AvailableCopies int
	CategoryID      int64
	CategoryName    string
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
