// Package merger combines per-corpus result lists into one list ordered
// by document ID.
package merger

import (
	"container/heap"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/paragraph"
)

// Merge k-way merges lists into a single list sorted by DocumentID. Inputs
// that are not already sorted are sorted first. When the same document
// appears more than once, the first list wins.
func Merge(lists ...[]paragraph.SearchResult) []paragraph.SearchResult {
	h := &cursorHeap{}
	total := 0
	for i, list := range lists {
		if len(list) == 0 {
			continue
		}
		if !sort.SliceIsSorted(list, func(a, b int) bool { return list[a].DocumentID < list[b].DocumentID }) {
			list = append([]paragraph.SearchResult(nil), list...)
			sort.SliceStable(list, func(a, b int) bool { return list[a].DocumentID < list[b].DocumentID })
		}
		*h = append(*h, cursor{list: list, source: i})
		total += len(list)
	}
	heap.Init(h)

	out := make([]paragraph.SearchResult, 0, total)
	for h.Len() > 0 {
		c := &(*h)[0]
		r := c.list[c.pos]
		if n := len(out); n == 0 || out[n-1].DocumentID != r.DocumentID {
			out = append(out, r)
		}
		c.pos++
		if c.pos == len(c.list) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}
	return out
}

type cursor struct {
	list   []paragraph.SearchResult
	pos    int
	source int
}

type cursorHeap []cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	a, b := h[i].list[h[i].pos].DocumentID, h[j].list[h[j].pos].DocumentID
	if a != b {
		return a < b
	}
	return h[i].source < h[j].source
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(cursor))
}

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
