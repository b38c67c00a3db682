package couch

import (
	"strings"

	"github.com/google/uuid"
)

// Document is a fully dynamic CouchDB document. The reserved fields _id
// and _rev hold its identity and current revision.
type Document map[string]interface{}

// ID returns the document id or an empty string.
func (d Document) ID() string {
	id, _ := d["_id"].(string)
	return id
}

// Rev returns the revision id or an empty string.
func (d Document) Rev() string {
	rev, _ := d["_rev"].(string)
	return rev
}

// IDRev returns document id and revision id at once.
func (d Document) IDRev() (id string, rev string) {
	return d.ID(), d.Rev()
}

// SetIDRev sets both reserved fields, an empty rev removes _rev.
func (d Document) SetIDRev(id string, rev string) {
	d["_id"] = id
	if rev == "" {
		delete(d, "_rev")
		return
	}
	d["_rev"] = rev
}

// Clone returns a shallow copy. Reserved fields can be set on the copy
// without touching d.
func (d Document) Clone() Document {
	c := make(Document, len(d)+2)
	for k, v := range d {
		c[k] = v
	}
	return c
}

// NewID returns a random document id: a version 4 uuid as 32 hex characters.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
