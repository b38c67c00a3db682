package couch_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couch "github.com/rogerbrinkmann/couchdb-rest-api"
)

// live connects to the CouchDB named by COUCH_TEST_URL. Tests using it are
// skipped when the variable isn't set.
func live(t *testing.T) *couch.Server {
	t.Helper()
	url := os.Getenv("COUCH_TEST_URL")
	if url == "" {
		t.Skip("COUCH_TEST_URL not set")
	}
	var cred *couch.Credentials
	if user := os.Getenv("COUCH_TEST_USER"); user != "" {
		cred = couch.NewCredentials(user, os.Getenv("COUCH_TEST_PASSWORD"))
	}
	s, err := couch.NewServer(context.Background(), url, cred)
	require.NoError(t, err)
	return s
}

func TestLive_Scenario(t *testing.T) {
	s := live(t)
	ctx := context.Background()
	name := "couch-test-" + couch.NewID()[:8]

	db, err := s.CreateDatabase(ctx, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.DeleteDatabase(context.Background(), name)
	})

	_, err = s.CreateDatabase(ctx, name)
	assert.ErrorIs(t, err, couch.ErrConflict)

	var ids []string
	for _, p := range []couch.Document{
		person("John", "Doe", 31),
		person("Monika", "Mustermann", 32),
		person("James", "Jelly", 33),
	} {
		saved, err := db.Save(ctx, p)
		require.NoError(t, err)
		assert.NotEmpty(t, saved.Rev())
		ids = append(ids, saved.ID())
	}

	_, err = db.Save(ctx, couch.Document{"_id": ids[0]})
	assert.ErrorIs(t, err, couch.ErrConflict)

	result, err := db.AllDocs(ctx, couch.Options{"limit": 2, "descending": true})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, 3, result.TotalRows)

	exists, err := db.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.DeleteDatabase(ctx, name)
	require.NoError(t, err)

	_, err = db.AllDocs(ctx, nil)
	assert.ErrorIs(t, err, couch.ErrNotFound)
}

func TestLive_WrongPassword(t *testing.T) {
	live(t)
	user := os.Getenv("COUCH_TEST_USER")
	if user == "" {
		t.Skip("COUCH_TEST_USER not set")
	}

	s, err := couch.NewServer(context.Background(), os.Getenv("COUCH_TEST_URL"), couch.NewCredentials(user, "not-the-password"))

	assert.Nil(t, s)
	assert.ErrorIs(t, err, couch.ErrUnauthorized)
}
