package couch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentIDRev(t *testing.T) {
	t.Parallel()
	doc := Document{"Name": "Peter"}
	id, rev := doc.IDRev()
	assert.Empty(t, id)
	assert.Empty(t, rev)

	doc.SetIDRev("foo", "bar")
	assert.Equal(t, "foo", doc.ID())
	assert.Equal(t, "bar", doc.Rev())

	doc.SetIDRev("foo", "")
	assert.NotContains(t, doc, "_rev")
}

func TestDocumentIDOfWrongType(t *testing.T) {
	doc := Document{"_id": 12, "_rev": true}
	assert.Empty(t, doc.ID())
	assert.Empty(t, doc.Rev())
}

func TestDocumentClone(t *testing.T) {
	t.Parallel()
	doc := Document{"Name": "Peter", "_id": "p"}
	c := doc.Clone()
	c["_rev"] = "1-abc"
	c["Name"] = "Anna"

	assert.Equal(t, Document{"Name": "Peter", "_id": "p"}, doc)
	assert.Equal(t, "1-abc", c.Rev())
}

func TestDocumentJSON(t *testing.T) {
	doc := Document{"firstname": "John", "_id": "john"}
	enc, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"john","firstname":"John"}`, string(enc))

	var dec Document
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"a","_rev":"1-x","n":1}`), &dec))
	assert.Equal(t, "a", dec.ID())
	assert.Equal(t, "1-x", dec.Rev())
}

func TestNewID(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		assert.Regexp(t, `^[0-9a-f]{32}$`, id)
		// version 4, RFC 4122 variant
		assert.Equal(t, byte('4'), id[12])
		assert.Contains(t, "89ab", string(id[16]))
		assert.False(t, seen[id])
		seen[id] = true
	}
}
