// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore

import (
	"encoding/json"
	"sort"
)

// NewTagEntry returns an empty TagEntry for tag.
func NewTagEntry(tag string) *TagEntry {
	return &TagEntry{Tag: tag, ObjectIDs: make(map[string]bool)}
}

// Add inserts id into the set, returning whether the set changed.
func (e *TagEntry) Add(id string) bool {
	if id == "" {
		return false
	}
	if e.ObjectIDs[id] {
		return false
	}
	e.ObjectIDs[id] = true
	return true
}

// Remove deletes id from the set, returning whether the set changed.
func (e *TagEntry) Remove(id string) bool {
	if !e.ObjectIDs[id] {
		return false
	}
	delete(e.ObjectIDs, id)
	return true
}

// Empty reports whether the tag's id set has become empty (Invariant 5:
// the tag object must be deleted in that case).
func (e *TagEntry) Empty() bool {
	return len(e.ObjectIDs) == 0
}

// MarshalJSON implements json.Marshaler, writing the set as a sorted slice
// per "{ tag, objectIds[] }" schema.
func (e TagEntry) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(e.ObjectIDs))
	for id := range e.ObjectIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return json.Marshal(tagEntryWire{Tag: e.Tag, ObjectIDs: ids})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *TagEntry) UnmarshalJSON(data []byte) error {
	var wire tagEntryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.Tag = wire.Tag
	e.ObjectIDs = make(map[string]bool, len(wire.ObjectIDs))
	for _, id := range wire.ObjectIDs {
		if id != "" {
			e.ObjectIDs[id] = true
		}
	}
	return nil
}
