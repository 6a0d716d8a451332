package service

import "ons-backend/internal/domain"

// Paged 一页数据加总数，HTTP 层据此生成分页信息
type Paged[T any] struct {
	Items []T
	Total int64
	Page  domain.Page
}

func newPaged[T any](items []T, total int64, p domain.Page) *Paged[T] {
	if items == nil {
		items = []T{}
	}
	return &Paged[T]{Items: items, Total: total, Page: p}
}

func (p *Paged[T]) Meta() (domain.Page, int64) { return p.Page, p.Total }

func (p *Paged[T]) Rows() any { return p.Items }
