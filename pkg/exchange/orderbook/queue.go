package orderbook

import (
	"github.com/peter-kozarec/barsim/pkg/common"
)

type entry struct {
	order *common.Order
	seq   uint64
}

// queue implements heap.Interface. better reports whether a has priority over b.
type queue struct {
	entries []*entry
	better  func(a, b *entry) bool
}

func newBidQueue() *queue {
	return &queue{better: func(a, b *entry) bool {
		if c := a.order.Price.Cmp(b.order.Price); c != 0 {
			return c > 0
		}
		return earlier(a, b)
	}}
}

func newAskQueue() *queue {
	return &queue{better: func(a, b *entry) bool {
		if c := a.order.Price.Cmp(b.order.Price); c != 0 {
			return c < 0
		}
		return earlier(a, b)
	}}
}

func earlier(a, b *entry) bool {
	if !a.order.TimeStamp.Equal(b.order.TimeStamp) {
		return a.order.TimeStamp.Before(b.order.TimeStamp)
	}
	return a.seq < b.seq
}

func (q *queue) Len() int           { return len(q.entries) }
func (q *queue) Less(i, j int) bool { return q.better(q.entries[i], q.entries[j]) }
func (q *queue) Swap(i, j int)      { q.entries[i], q.entries[j] = q.entries[j], q.entries[i] }

func (q *queue) Push(x any) {
	q.entries = append(q.entries, x.(*entry))
}

func (q *queue) Pop() any {
	n := len(q.entries)
	e := q.entries[n-1]
	q.entries[n-1] = nil
	q.entries = q.entries[:n-1]
	return e
}

func (q *queue) top() *entry {
	return q.entries[0]
}
