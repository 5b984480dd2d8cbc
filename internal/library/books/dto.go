package books

type BookRequest struct {
	ISBN            string `json:"isbn" binding:"required"`
	Title           string `json:"title" binding:"required"`
	Author          string `json:"author" binding:"required"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies *int   `json:"available_copies"` // nil: 作成時は total と同じ、更新時は保存済みの値を引き継ぐ
	CategoryID      int64  `json:"category_id" binding:"required"`
}

type BookResponse struct {
	ID              int64  `json:"id"`
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	CategoryID      int64  `json:"category_id"`
	CategoryName    string `json:"category_name,omitempty"`
}

type ListResponse struct {
	Items      []BookResponse `json:"items"`
	Total      int64          `json:"total"`
	NextOffset int            `json:"next_offset"`
}

// ImportRowResult: CSV 1行ごとの結果 (line は見出し行を1として数える)
type ImportRowResult struct {
	Line   int     `json:"line"`
	ISBN   string  `json:"isbn,omitempty"`
	BookID *int64  `json:"book_id,omitempty"`
	Error  *string `json:"error,omitempty"`
}

type ImportResponse struct {
	Created int               `json:"created"`
	Failed  int               `json:"failed"`
	Rows    []ImportRowResult `json:"rows"`
}

func toResponse(b *Book) BookResponse {
	return BookResponse{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		CategoryID:      b.CategoryID,
		CategoryName:    b.CategoryName,
	}
}

func toResponses(bs []Book) []BookResponse {
	out := make([]BookResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toResponse(&bs[i]))
	}
	return out
}

func nextOffset(total int64, p Page) int {
	n := p.Offset + p.Limit
	if n >= int(total) {
		return 0
	}
	return n
}
