package models

import (
	"encoding/json"
	"sort"
)

// Completion is the set of completed lesson ids. Only membership is kept.
type Completion map[uint]struct{}

// NewCompletion builds a set from ids.
func NewCompletion(ids ...uint) Completion {
	set := make(Completion, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Add inserts the id and reports whether it was not present before.
func (c Completion) Add(id uint) bool {
	if _, ok := c[id]; ok {
		return false
	}
	c[id] = struct{}{}
	return true
}

// Has reports membership.
func (c Completion) Has(id uint) bool {
	_, ok := c[id]
	return ok
}

// IDs returns the members in ascending order.
func (c Completion) IDs() []uint {
	ids := make([]uint, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c Completion) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.IDs())
}

func (c *Completion) UnmarshalJSON(data []byte) error {
	var ids []uint
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*c = NewCompletion(ids...)
	return nil
}
