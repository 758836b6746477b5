package listing

// Pagination describes the page strip under a table.
type Pagination struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// NewPagination clamps page into range for the given total.
func NewPagination(page, pageSize, total int) Pagination {
	pages := TotalPages(total, pageSize)
	return Pagination{
		Page:       ClampPage(page, pages),
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
	}
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }
func (p Pagination) Prev() int     { return ClampPage(p.Page-1, p.TotalPages) }
func (p Pagination) Next() int     { return ClampPage(p.Page+1, p.TotalPages) }

// From is the 1-based index of the first row shown, zero when empty.
func (p Pagination) From() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

// To is the 1-based index of the last row shown.
func (p Pagination) To() int {
	if p.PageSize < 1 {
		return p.Total
	}
	return min(p.Page*p.PageSize, p.Total)
}

// Window returns at most size page numbers centred on the current page.
func (p Pagination) Window(size int) []int {
	if size < 1 {
		size = 1
	}
	size = min(size, p.TotalPages)
	start := max(p.Page-size/2, 1)
	if start+size-1 > p.TotalPages {
		start = p.TotalPages - size + 1
	}
	out := make([]int, size)
	for i := range out {
		out[i] = start + i
	}
	return out
}
