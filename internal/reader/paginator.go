package reader

import (
	"fmt"

	"github.com/glabrego/odyssey-reader/internal/book"
)

// ErrNoPages is returned when a paginator is built over an empty work.
var ErrNoPages = book.ErrEmptySource

// OutOfRangeError rejects a jump outside [1, Total].
type OutOfRangeError struct {
	Requested int
	Total     int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("Please enter a page number between 1 and %d", e.Total)
}

// PositionSaver persists the current page after each successful navigation.
type PositionSaver func(page int) error

// Paginator tracks the current page. The current page is always in [1, Total].
type Paginator struct {
	pages   []Page
	current int
	save    PositionSaver
}

func NewPaginator(pages []Page, save PositionSaver) (*Paginator, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return &Paginator{pages: pages, current: 1, save: save}, nil
}

// Restore moves to a previously saved page, clamped into range. It does not persist.
func (p *Paginator) Restore(saved int) {
	p.current = clampPage(saved, len(p.pages))
}

// Replace swaps in a new set of pages and keeps the current page in range.
func (p *Paginator) Replace(pages []Page) error {
	if len(pages) == 0 {
		return ErrNoPages
	}
	p.pages = pages
	p.current = clampPage(p.current, len(pages))
	return nil
}

func (p *Paginator) Current() Page {
	return p.pages[p.current-1]
}

func (p *Paginator) CurrentNumber() int {
	return p.current
}

func (p *Paginator) Total() int {
	return len(p.pages)
}

func (p *Paginator) Pages() []Page {
	return p.pages
}

// Page returns page n, or false when n is out of range.
func (p *Paginator) Page(n int) (Page, bool) {
	if n < 1 || n > len(p.pages) {
		return Page{}, false
	}
	return p.pages[n-1], true
}

// Next advances one page. It reports false and does nothing on the last page.
func (p *Paginator) Next() (bool, error) {
	if p.current >= len(p.pages) {
		return false, nil
	}
	return true, p.moveTo(p.current + 1)
}

// Prev goes back one page. It reports false and does nothing on the first page.
func (p *Paginator) Prev() (bool, error) {
	if p.current <= 1 {
		return false, nil
	}
	return true, p.moveTo(p.current - 1)
}

// JumpTo moves to page n. Out-of-range requests leave the state unchanged.
func (p *Paginator) JumpTo(n int) error {
	if n < 1 || n > len(p.pages) {
		return &OutOfRangeError{Requested: n, Total: len(p.pages)}
	}
	return p.moveTo(n)
}

// moveTo always applies the move; a failed save is reported but not rolled back.
func (p *Paginator) moveTo(n int) error {
	p.current = n
	if p.save == nil {
		return nil
	}
	if err := p.save(n); err != nil {
		return fmt.Errorf("save reading position: %w", err)
	}
	return nil
}

func clampPage(n, total int) int {
	if n < 1 {
		return 1
	}
	if n > total {
		return total
	}
	return n
}
