package couch

import (
	"context"
	"fmt"
	"net/http"
)

// Database of a CouchDB instance
type Database struct {
	server *Server
	name   string
}

// Name of database
func (db *Database) Name() string {
	return db.name
}

// Server the database belongs to
func (db *Database) Server() *Server {
	return db.server
}

// URL returns the absolute url to a database
func (db *Database) URL() string {
	return db.server.url + "/" + escape(db.name)
}

// docURL returns the absolute url to a document
func (db *Database) docURL(id string) string {
	return db.URL() + "/" + escape(id)
}

// Create a new database, see Server.CreateDatabase
func (db *Database) Create(ctx context.Context) error {
	_, err := db.server.CreateDatabase(ctx, db.name)
	return err
}

// Drop deletes the database, see Server.DeleteDatabase
func (db *Database) Drop(ctx context.Context) error {
	_, err := db.server.DeleteDatabase(ctx, db.name)
	return err
}

// Exists returns true if a database really exists
func (db *Database) Exists(ctx context.Context) (bool, error) {
	resp, err := db.server.transport.Head(ctx, db.URL())
	if err != nil {
		return false, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, statusError(resp)
	}
}

// AllDocs lists the documents of the database, options are sent as query
// parameters, e.g. Options{"limit": 2, "descending": true}.
func (db *Database) AllDocs(ctx context.Context, options Options) (*AllDocsResult, error) {
	resp, err := db.server.transport.Get(ctx, db.URL()+"/_all_docs", options)
	if err != nil {
		return nil, err
	}
	result := &AllDocsResult{}
	if err := decodeSuccess(resp, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AllDocsByKeys lists the documents with the given ids. Options are sent
// in the request body along with the keys. Nil keys post the options only.
func (db *Database) AllDocsByKeys(ctx context.Context, keys []string, options Options) (*AllDocsResult, error) {
	body := options
	if keys != nil {
		body = options.with("keys", keys)
	} else if body == nil {
		body = Options{}
	}
	resp, err := db.server.transport.Post(ctx, db.URL()+"/_all_docs", body)
	if err != nil {
		return nil, err
	}
	result := &AllDocsResult{}
	if err := decodeSuccess(resp, result); err != nil {
		return nil, err
	}
	return result, nil
}

// CouchDB result of document insert
type insertResult struct {
	ID  string `json:"id"`
	Ok  bool   `json:"ok"`
	Rev string `json:"rev"`
}

// Save stores doc and returns a copy of it with _id and _rev set. A doc
// without _id is given a random one first, so repeating a failed request
// can't create a second document. doc itself is never modified.
//
// Saving a document whose _id exists without its current _rev fails with
// ErrConflict. An _id that is not a non-empty string fails with
// ErrInvalidDocument before anything is sent.
func (db *Database) Save(ctx context.Context, doc Document) (Document, error) {
	saved := doc.Clone()
	var id string
	switch v, ok := saved["_id"]; {
	case !ok:
		id = NewID()
		saved["_id"] = id
	case v == "":
		return nil, fmt.Errorf("%w: empty _id", ErrInvalidDocument)
	default:
		if id, ok = v.(string); !ok {
			return nil, fmt.Errorf("%w: _id is %T, not a string", ErrInvalidDocument, v)
		}
	}

	resp, err := db.server.transport.Put(ctx, db.docURL(id), saved)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusAccepted, http.StatusOK:
	case http.StatusConflict:
		return nil, newError(ErrConflict, resp)
	default:
		return nil, statusError(resp)
	}

	var result insertResult
	if err := resp.Decode(&result); err != nil {
		return nil, &TransportError{Op: http.MethodPut, URL: db.docURL(id), Err: err}
	}
	if result.Rev != "" {
		saved["_rev"] = result.Rev
	}
	return saved, nil
}

// Retrieve gets the latest revision of a document.
func (db *Database) Retrieve(ctx context.Context, id string) (Document, error) {
	resp, err := db.server.transport.Get(ctx, db.docURL(id), nil)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := decodeSuccess(resp, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
