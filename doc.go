// Package couch implements a small client for the CouchDB HTTP API.
//
// It covers server administration (databases, active tasks, cluster setup),
// listing documents and saving them. Bulk updates, views and replication
// management are not part of it.
//
// Getting started:
//
//	cred := couch.NewCredentials("admin", "password")
//	s, err := couch.NewServer(ctx, "http://127.0.0.1:5984", cred)
//	if err != nil {
//		// errors.Is(err, couch.ErrUnauthorized) if the login was refused
//	}
//	db, err := s.CreateDatabase(ctx, "people")
//
// NewServer logs in once and keeps the session cookie. Without credentials
// no login takes place and requests are sent anonymously.
//
// Documents
//
// A Document is a plain JSON object. Save stores it and returns a copy
// with _id and _rev set. A document without _id gets a random one:
//
//	saved, err := db.Save(ctx, couch.Document{"name": "Peter"})
//	saved["name"] = "Anna"
//	saved, err = db.Save(ctx, saved)
//
// Saving without the current _rev means someone else may have edited the
// document in the meantime. CouchDB refuses the update and Save returns
// ErrConflict. Retrieve the latest revision and try again.
//
// AllDocs lists documents, Options are sent as query parameters:
//
//	result, err := db.AllDocs(ctx, couch.Options{"limit": 10, "include_docs": true})
//
// AllDocsByKeys lists the documents with the given ids. Ids that don't
// exist show up as rows with Error set.
//
// Error handling
//
// Errors returned by CouchDB are converted into an *Error carrying the
// status code as well as CouchDB's shortform (e.g. bad_request) and reason.
// Use errors.Is with ErrUnauthorized, ErrConflict, ErrNotFound or
// ErrUnexpectedStatus to tell them apart, or ErrorType to get the shortform
// only. Failures below HTTP, like refused connections, timeouts or answers
// that aren't JSON, are returned as *TransportError.
package couch
