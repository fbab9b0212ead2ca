package layer

import "sort"

// Subscription is an owned handle on a collection change listener.
type Subscription struct {
	c  *Collection
	id int
}

// Subscribe registers fn for change events. fn runs synchronously after each
// mutation, on the caller's thread.
func (c *Collection) Subscribe(fn func(Change)) *Subscription {
	if c.subs == nil {
		c.subs = make(map[int]func(Change))
	}
	c.nextID++
	c.subs[c.nextID] = fn
	return &Subscription{c: c, id: c.nextID}
}

// Close releases the listener. Closing twice, or a nil handle, is a no-op.
func (s *Subscription) Close() {
	if s == nil || s.c == nil {
		return
	}
	delete(s.c.subs, s.id)
	s.c = nil
}

func (c *Collection) publish(ch Change) {
	for _, id := range c.subscriberIDs() {
		if fn, ok := c.subs[id]; ok {
			fn(ch)
		}
	}
}

// subscriberIDs fixes the delivery order and tolerates listeners closing
// themselves mid-publish.
func (c *Collection) subscriberIDs() []int {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
