package couch

import (
	"context"
	"net/http"
	"net/url"
)

// CouchDB instance
type Server struct {
	url       string
	transport *Transport
}

// NewServer returns a server handle with an open session. If cred is nil no
// login takes place. A rejected login returns ErrUnauthorized and no handle.
func NewServer(ctx context.Context, url string, cred *Credentials, opts ...Option) (*Server, error) {
	if url == "" {
		url = DefaultURL
	}
	t, err := Connect(ctx, url, cred, opts...)
	if err != nil {
		return nil, err
	}
	return &Server{url: t.URL(), transport: t}, nil
}

// URL returns the host (including its port) of a CouchDB instance.
func (s *Server) URL() string {
	return s.url
}

// Transport returns the session all requests of the server go through.
func (s *Server) Transport() *Transport {
	return s.transport
}

// Returns a database handle
func (s *Server) Database(name string) *Database {
	return &Database{server: s, name: name}
}

// AllDatabases returns a handle for every database of the instance.
func (s *Server) AllDatabases(ctx context.Context) ([]*Database, error) {
	var names []string
	if err := s.get(ctx, "/_all_dbs", &names); err != nil {
		return nil, err
	}
	dbs := make([]*Database, len(names))
	for i, name := range names {
		dbs[i] = s.Database(name)
	}
	return dbs, nil
}

type keysRequest struct {
	Keys []string `json:"keys"`
}

// DatabasesInfo returns information about the named databases as reported
// by CouchDB. Unknown names yield an entry with Error set.
func (s *Server) DatabasesInfo(ctx context.Context, names []string) ([]DatabaseInfo, error) {
	if names == nil {
		names = []string{}
	}
	resp, err := s.transport.Post(ctx, s.url+"/_dbs_info", keysRequest{Keys: names})
	if err != nil {
		return nil, err
	}
	var infos []DatabaseInfo
	if err := decodeSuccess(resp, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// ActiveTasks returns all currently active tasks of a CouchDB instance.
func (s *Server) ActiveTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := s.get(ctx, "/_active_tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ClusterSetup returns the current cluster setup state.
func (s *Server) ClusterSetup(ctx context.Context) (map[string]interface{}, error) {
	var state map[string]interface{}
	if err := s.get(ctx, "/_cluster_setup", &state); err != nil {
		return nil, err
	}
	return state, nil
}

// ConfigureCluster posts a cluster setup action, e.g. enable_single_node,
// and returns CouchDB's answer.
func (s *Server) ConfigureCluster(ctx context.Context, setup map[string]interface{}) (map[string]interface{}, error) {
	resp, err := s.transport.Post(ctx, s.url+"/_cluster_setup", setup)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := decodeSuccess(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Info returns name and version of the instance.
func (s *Server) Info(ctx context.Context) (*ServerInfo, error) {
	info := &ServerInfo{}
	if err := s.get(ctx, "/", info); err != nil {
		return nil, err
	}
	return info, nil
}

// CreateDatabase creates a new database. If it already exists, the error
// is ErrConflict carrying CouchDB's reason.
func (s *Server) CreateDatabase(ctx context.Context, name string) (*Database, error) {
	db := s.Database(name)
	resp, err := s.transport.Put(ctx, db.URL(), nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusAccepted:
		return db, nil
	case http.StatusPreconditionFailed:
		return nil, newError(ErrConflict, resp)
	default:
		return nil, statusError(resp)
	}
}

// DeleteDatabase deletes a database and returns CouchDB's answer as is.
// The answer is returned even if the deletion failed.
func (s *Server) DeleteDatabase(ctx context.Context, name string) (map[string]interface{}, error) {
	dbURL := s.Database(name).URL()
	resp, err := s.transport.Delete(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	var body map[string]interface{}
	if err := resp.Decode(&body); err != nil {
		return nil, &TransportError{Op: http.MethodDelete, URL: dbURL, Err: err}
	}
	if !resp.Success() {
		return body, statusError(resp)
	}
	return body, nil
}

// get requests a path of the instance and decodes a successful answer into v.
func (s *Server) get(ctx context.Context, path string, v interface{}) error {
	resp, err := s.transport.Get(ctx, s.url+path, nil)
	if err != nil {
		return err
	}
	return decodeSuccess(resp, v)
}

// decodeSuccess decodes a 2xx answer into v, any other answer becomes an error.
func decodeSuccess(resp *Response, v interface{}) error {
	if !resp.Success() {
		return statusError(resp)
	}
	if err := resp.Decode(v); err != nil {
		return &TransportError{Op: resp.method, URL: resp.url, Err: err}
	}
	return nil
}

// escape a database name or document id for use as a single path segment.
// Slashes of design documents are kept.
func escape(segment string) string {
	const design = "_design/"
	if len(segment) > len(design) && segment[:len(design)] == design {
		return design + url.PathEscape(segment[len(design):])
	}
	return url.PathEscape(segment)
}
