package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couch "github.com/rogerbrinkmann/couchdb-rest-api"
	"github.com/rogerbrinkmann/couchdb-rest-api/internal/couchtest"
)

func TestDocSaveCmd(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))

	out, err := execute(t, against(t, s, "doc", "save", "people", `{"_id":"alice","age":30}`)...)

	require.NoError(t, err)
	var doc couch.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "alice", doc.ID())
	assert.True(t, strings.HasPrefix(doc.Rev(), "1-"))
	assert.Equal(t, float64(30), s.Document("people", "alice")["age"])
}

func TestDocSaveCmd_AssignsID(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))

	out, err := execute(t, against(t, s, "doc", "save", "people", `{"name":"bob"}`)...)

	require.NoError(t, err)
	var doc couch.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.ID(), 32)
	assert.NotNil(t, s.Document("people", doc.ID()))
}

func TestDocSaveCmd_Stdin(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))
	rootCmd.SetIn(strings.NewReader(`{"_id":"carol"}`))
	defer rootCmd.SetIn(nil)

	_, err := execute(t, against(t, s, "doc", "save", "people", "-")...)

	require.NoError(t, err)
	assert.NotNil(t, s.Document("people", "carol"))
}

func TestDocSaveCmd_InvalidDocument(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))

	for _, arg := range []string{"not json", "null", "[1,2]"} {
		t.Run(arg, func(t *testing.T) {
			_, err := execute(t, against(t, s, "doc", "save", "people", arg)...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid document")
		})
	}
}

func TestDocSaveCmd_Conflict(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))
	_, err := execute(t, against(t, s, "doc", "save", "people", `{"_id":"alice"}`)...)
	require.NoError(t, err)

	_, err = execute(t, against(t, s, "doc", "save", "people", `{"_id":"alice"}`)...)

	assert.ErrorIs(t, err, couch.ErrConflict)
}

func TestDocGetCmd(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))
	_, err := execute(t, against(t, s, "doc", "save", "people", `{"_id":"alice","age":30}`)...)
	require.NoError(t, err)

	out, err := execute(t, against(t, s, "doc", "get", "people", "alice")...)

	require.NoError(t, err)
	assert.Contains(t, out, `"age": 30`)
}

func TestDocGetCmd_Missing(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))

	_, err := execute(t, against(t, s, "doc", "get", "people", "nobody")...)

	assert.ErrorIs(t, err, couch.ErrNotFound)
}

func saveAll(t *testing.T, s *couchtest.Server, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := execute(t, against(t, s, "doc", "save", "people", `{"_id":"`+id+`"}`)...)
		require.NoError(t, err)
	}
}

func TestDocListCmd(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))
	saveAll(t, s, "a", "b", "c")

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"all", nil, []string{"a", "b", "c"}},
		{"limit", []string{"--limit", "2"}, []string{"a", "b"}},
		{"skip", []string{"--skip", "1"}, []string{"b", "c"}},
		{"descending", []string{"--descending", "--limit", "1"}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"doc", "list", "people"}, tt.args...)
			out, err := execute(t, against(t, s, args...)...)

			require.NoError(t, err)
			var result couch.AllDocsResult
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			assert.Equal(t, 3, result.TotalRows)
			assert.Equal(t, tt.want, result.IDs())
		})
	}
}

func TestDocListCmd_IncludeDocs(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))
	saveAll(t, s, "a")

	out, err := execute(t, against(t, s, "doc", "list", "people", "--include-docs")...)

	require.NoError(t, err)
	var result couch.AllDocsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "a", result.Rows[0].Doc.ID())
}

func TestDocKeysCmd(t *testing.T) {
	s := fake(t, couchtest.WithDatabase("people"))
	saveAll(t, s, "a", "b", "c")

	out, err := execute(t, against(t, s, "doc", "keys", "people", "c", "x", "a")...)

	require.NoError(t, err)
	var result couch.AllDocsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Rows, 3)
	assert.Equal(t, []string{"c", "a"}, result.IDs())
	assert.Equal(t, "not_found", result.Rows[1].Error)
}
