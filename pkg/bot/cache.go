package bot

import "container/list"

// memoCacheCap bounds each per-bot memo table. Entries are evicted least
// recently used.
const memoCacheCap = 50000

type cacheEntry[V any] struct {
	key string
	val V
}

// memoCache is a small LRU keyed by hand signature. It is per-bot and
// cleared on every new round, so it never leaks cards between games.
type memoCache[V any] struct {
	cap   int
	order *list.List
	items map[string]*list.Element
}

func newMemoCache[V any](capacity int) *memoCache[V] {
	return &memoCache[V]{
		cap:   capacity,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *memoCache[V]) get(key string) (V, bool) {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry[V]).val, true
	}
	var zero V
	return zero, false
}

func (c *memoCache[V]) put(key string, val V) {
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry[V]).val = val
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry[V]{key: key, val: val})
	c.items[key] = el
	if c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry[V]).key)
	}
}

func (c *memoCache[V]) clear() {
	c.order.Init()
	c.items = make(map[string]*list.Element)
}

func (c *memoCache[V]) len() int { return c.order.Len() }
