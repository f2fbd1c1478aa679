// Package models defines core data structures for document records, search
// results, and retrieval context bundles.
package models

import "time"

// DocumentRecord is the metadata entity for one tracked file. The absolute
// path is the unique key in the index; the ID is assigned once at creation
// and never changes for a live record.
type DocumentRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Path       string            `json:"path"`
	Type       string            `json:"type"`
	Tags       []string          `json:"tags"`
	CreatedAt  time.Time         `json:"createdAt"`
	ModifiedAt time.Time         `json:"modifiedAt"`
	OCRText    string            `json:"ocrText,omitempty"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// HasTag reports whether the record carries the given tag.
func (d *DocumentRecord) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds tag to the record's tag set. Returns false if the tag was
// already present (set semantics, never duplicates).
func (d *DocumentRecord) AddTag(tag string) bool {
	if d.HasTag(tag) {
		return false
	}
	d.Tags = append(d.Tags, tag)
	return true
}

// RemoveTag removes tag from the record's tag set. Returns false if the tag
// was not present.
func (d *DocumentRecord) RemoveTag(tag string) bool {
	for i, t := range d.Tags {
		if t == tag {
			d.Tags = append(d.Tags[:i], d.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record. The index store hands out clones
// so callers can never mutate indexed state outside the store's lock.
func (d *DocumentRecord) Clone() *DocumentRecord {
	c := *d
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	if d.Embedding != nil {
		c.Embedding = append([]float32(nil), d.Embedding...)
	}
	if d.Metadata != nil {
		c.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
