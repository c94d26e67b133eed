package orderbook

import (
	"container/heap"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// Book keeps resting limit orders in price-time priority. Cancellation is lazy,
// cancelled entries stay in the heap until they surface at the top. Not safe
// for concurrent use.
type Book struct {
	bids   *queue
	asks   *queue
	orders map[string]*common.Order
	seq    uint64
}

func NewBook() *Book {
	return &Book{
		bids:   newBidQueue(),
		asks:   newAskQueue(),
		orders: make(map[string]*common.Order),
	}
}

// AddOrder rests the order in the book and returns its id, assigning one when missing.
func (b *Book) AddOrder(order *common.Order) string {
	if order.Id == "" {
		order.Id = utility.NewOrderID()
	}
	order.Status = common.OrderStatusPlaced
	order.IsCancelled = false

	b.seq++
	heap.Push(b.side(order.Side), &entry{order: order, seq: b.seq})
	b.orders[order.Id] = order
	return order.Id
}

func (b *Book) CancelOrder(id string) bool {
	order, ok := b.orders[id]
	if !ok {
		return false
	}
	order.IsCancelled = true
	order.Status = common.OrderStatusCancelled
	return true
}

// ModifyOrder replaces a live order with a copy carrying the new quantity and
// price. Zero arguments keep the current values. The copy gets a new id and
// loses its time priority.
func (b *Book) ModifyOrder(id string, quantity int64, price fixed.Point) (string, bool) {
	order, ok := b.orders[id]
	if !ok || order.IsCancelled {
		return "", false
	}

	modified := *order
	modified.Id = ""
	if quantity > 0 {
		modified.Quantity = quantity
	}
	if !price.IsZero() {
		modified.Price = price
	}

	b.CancelOrder(id)
	return b.AddOrder(&modified), true
}

func (b *Book) Get(id string) (*common.Order, bool) {
	order, ok := b.orders[id]
	if !ok || order.IsCancelled {
		return nil, false
	}
	return order, true
}

func (b *Book) BestBid() (*common.Order, bool) { return b.peek(b.bids) }
func (b *Book) BestAsk() (*common.Order, bool) { return b.peek(b.asks) }

func (b *Book) PopBestBid() (*common.Order, bool) { return b.pop(b.bids) }
func (b *Book) PopBestAsk() (*common.Order, bool) { return b.pop(b.asks) }

// Len is the number of live resting orders.
func (b *Book) Len() int {
	n := 0
	for _, order := range b.orders {
		if !order.IsCancelled {
			n++
		}
	}
	return n
}

func (b *Book) side(side common.Side) *queue {
	if side == common.SideSell {
		return b.asks
	}
	return b.bids
}

func (b *Book) peek(q *queue) (*common.Order, bool) {
	b.discardCancelled(q)
	if q.Len() == 0 {
		return nil, false
	}
	return q.top().order, true
}

func (b *Book) pop(q *queue) (*common.Order, bool) {
	b.discardCancelled(q)
	if q.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(q).(*entry)
	delete(b.orders, e.order.Id)
	return e.order, true
}

func (b *Book) discardCancelled(q *queue) {
	for q.Len() > 0 && q.top().order.IsCancelled {
		e := heap.Pop(q).(*entry)
		if b.orders[e.order.Id] == e.order {
			delete(b.orders, e.order.Id)
		}
	}
}
