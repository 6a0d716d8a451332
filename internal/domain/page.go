package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page 是 offset/limit 分页参数，页码从 1 开始
type Page struct {
	Page  int
	Limit int
}

func NewPage(page, limit, def int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

func (p Page) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

func (p Page) HasNext(total int64) bool { return p.Page < p.TotalPages(total) }
func (p Page) HasPrev() bool            { return p.Page > 1 }
