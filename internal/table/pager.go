package table

// DefaultMaxVisible is the number of page buttons shown when unset.
const DefaultMaxVisible = 5

// Window is the run of page numbers shown to the user. Pages are one-based.
type Window struct {
	Start int
	End   int
	Pages []int
}

// Contains reports whether page is inside the window.
func (w Window) Contains(page int) bool {
	return page >= w.Start && page <= w.End
}

// ComputeWindow settles a window start against the current page and page
// count and returns the visible pages.
func ComputeWindow(currentPage, totalPages, windowStart, maxVisible int) Window {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	if totalPages <= 0 {
		return Window{Start: 1, End: 0}
	}
	start := windowStart
	if currentPage >= 1 && currentPage < start {
		start = currentPage
	}
	if currentPage > start+maxVisible-1 {
		start = currentPage - maxVisible + 1
	}
	start = clampStart(start, totalPages, maxVisible)

	end := start + maxVisible - 1
	if end > totalPages {
		end = totalPages
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return Window{Start: start, End: end, Pages: pages}
}

func clampStart(start, totalPages, maxVisible int) int {
	if totalPages < maxVisible {
		return 1
	}
	if high := totalPages - maxVisible + 1; start > high {
		start = high
	}
	if start < 1 {
		start = 1
	}
	return start
}

// Pager tracks the current page and the sliding window of page buttons.
type Pager struct {
	current    int
	total      int
	start      int
	maxVisible int
}

// NewPager starts on page one.
func NewPager(totalPages, maxVisible int) *Pager {
	return RestorePager(1, totalPages, 1, maxVisible)
}

// RestorePager rebuilds a pager from state carried between requests.
func RestorePager(currentPage, totalPages, windowStart, maxVisible int) *Pager {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	p := &Pager{current: currentPage, total: totalPages, start: windowStart, maxVisible: maxVisible}
	p.settle()
	return p
}

// Current returns the one-based current page.
func (p *Pager) Current() int { return p.current }

// Total returns the page count.
func (p *Pager) Total() int { return p.total }

// WindowStart returns the first page of the window.
func (p *Pager) WindowStart() int { return p.start }

// Window returns the visible page numbers.
func (p *Pager) Window() Window {
	return ComputeWindow(p.current, p.total, p.start, p.maxVisible)
}

// CanPrevious reports whether Previous would move.
func (p *Pager) CanPrevious() bool { return p.current > 1 }

// CanNext reports whether Next would move.
func (p *Pager) CanNext() bool { return p.current < p.total }

// Next moves forward one page. The window slides only when the current page
// was its last entry.
func (p *Pager) Next() bool {
	if !p.CanNext() {
		return false
	}
	if p.current == p.Window().End {
		p.start++
	}
	p.current++
	p.settle()
	return true
}

// Previous moves back one page. The window slides only when the current page
// was its first entry.
func (p *Pager) Previous() bool {
	if !p.CanPrevious() {
		return false
	}
	if p.current == p.start {
		p.start--
	}
	p.current--
	p.settle()
	return true
}

// GoTo jumps to page. Pages inside the window leave it in place; pages
// outside pull the nearest edge of the window onto them.
func (p *Pager) GoTo(page int) bool {
	if p.total <= 0 {
		return false
	}
	if page < 1 {
		page = 1
	}
	if page > p.total {
		page = p.total
	}
	if page == p.current {
		return false
	}
	w := p.Window()
	switch {
	case page < w.Start:
		p.start = page
	case page > w.End:
		p.start = page - p.maxVisible + 1
	}
	p.current = page
	p.settle()
	return true
}

// SetTotal updates the page count, for example after filtering.
func (p *Pager) SetTotal(totalPages int) {
	p.total = totalPages
	p.settle()
}

// Reset returns to page one.
func (p *Pager) Reset() {
	p.current = 1
	p.settle()
}

func (p *Pager) settle() {
	if p.total <= 0 {
		p.current = 1
		p.start = 1
		return
	}
	if p.current > p.total {
		p.current = p.total
	}
	if p.current < 1 {
		p.current = 1
	}
	p.start = ComputeWindow(p.current, p.total, p.start, p.maxVisible).Start
}
