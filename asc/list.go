package asc

import (
	"context"
)

// document is one page of a JSON:API collection.
type document[R any] struct {
	Data  []R `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// Iterator walks every resource of a paginated collection, following
// links.next until a page has none.
type Iterator[R any] struct {
	c   *Client
	ctx context.Context

	next string // URL of the next page, or "" when done
	data []R

	val R
	err error // owned by Next and Err only
}

func List[R any](ctx context.Context, c *Client, urlStr string) *Iterator[R] {
	return &Iterator[R]{
		c:    c,
		ctx:  ctx,
		next: urlStr,
	}
}

func (i *Iterator[R]) Err() error { return i.err }
func (i *Iterator[R]) Value() R   { return i.val }

func (i *Iterator[R]) Next() bool {
	for {
		if len(i.data) > 0 {
			i.val, i.data = i.data[0], i.data[1:]
			return true
		}
		if i.next == "" {
			return false
		}
		if err := i.refill(); err != nil {
			i.err = err
			return false
		}
		if len(i.data) == 0 {
			// avoid inf loop if a page "succeeds" but returns no data
			return false
		}
	}
}

func (i *Iterator[R]) refill() error {
	page := i.next
	doc, err := send[document[R]](i.ctx, i.c, "GET", page, nil)
	if err != nil {
		return err
	}
	i.data = doc.Data
	i.next = ""
	if next := i.c.resolve(doc.Links.Next); next != "" && next != page {
		i.next = next
	}
	return nil
}

// Slurp returns each R over all pages of a collection, or an error if any.
func Slurp[R any](ctx context.Context, c *Client, urlStr string) ([]R, error) {
	var rr []R
	l := List[R](ctx, c, urlStr)
	for l.Next() {
		rr = append(rr, l.Value())
	}
	if err := l.Err(); err != nil {
		return nil, err
	}
	return rr, nil
}
