package twin

import (
	"encoding/json"
	"sort"
)

// CounterSet is a monotonically-incrementing counter map that remembers
// the order labels were first seen. Rankings use that order as the
// tie-break so repeated reads are deterministic.
type CounterSet struct {
	counts map[string]int
	order  []string
}

// NewCounterSet creates an empty counter set.
func NewCounterSet() *CounterSet {
	return &CounterSet{counts: make(map[string]int)}
}

// Inc increments the counter for label by one.
func (c *CounterSet) Inc(label string) {
	if _, seen := c.counts[label]; !seen {
		c.order = append(c.order, label)
	}
	c.counts[label]++
}

// Count returns the current count for label.
func (c *CounterSet) Count(label string) int {
	return c.counts[label]
}

// Len returns the number of distinct labels.
func (c *CounterSet) Len() int {
	return len(c.counts)
}

// Top returns up to k labels ordered by descending count, ties broken by
// first-seen order.
func (c *CounterSet) Top(k int) []string {
	if k <= 0 || len(c.order) == 0 {
		return nil
	}

	labels := make([]string, len(c.order))
	copy(labels, c.order)
	sort.SliceStable(labels, func(i, j int) bool {
		return c.counts[labels[i]] > c.counts[labels[j]]
	})

	if k < len(labels) {
		labels = labels[:k]
	}
	return labels
}

// clone returns a deep copy.
func (c *CounterSet) clone() *CounterSet {
	out := &CounterSet{
		counts: make(map[string]int, len(c.counts)),
		order:  make([]string, len(c.order)),
	}
	for k, v := range c.counts {
		out.counts[k] = v
	}
	copy(out.order, c.order)
	return out
}

// counterSetJSON is the serialized form, preserving first-seen order.
type counterSetJSON struct {
	Counts map[string]int `json:"counts"`
	Order  []string       `json:"order"`
}

// MarshalJSON implements json.Marshaler.
func (c *CounterSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(counterSetJSON{Counts: c.counts, Order: c.order})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CounterSet) UnmarshalJSON(data []byte) error {
	var raw counterSetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.counts = raw.Counts
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.order = raw.Order
	return nil
}
