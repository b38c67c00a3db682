package couch

import "strings"

// Container for the rows of an _all_docs request
type AllDocsResult struct {
	TotalRows int   `json:"total_rows"`
	Offset    int   `json:"offset"`
	Rows      []Row `json:"rows"`
}

// A single _all_docs row. Doc is only set with include_docs=true, Error
// only for requested keys that don't exist.
type Row struct {
	ID    string      `json:"id,omitempty"`
	Key   interface{} `json:"key"`
	Value RowValue    `json:"value"`
	Doc   Document    `json:"doc,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Value of an _all_docs row
type RowValue struct {
	Rev     string `json:"rev"`
	Deleted bool   `json:"deleted,omitempty"`
}

// IDs returns the document ids of all rows, skipping rows with errors.
func (r *AllDocsResult) IDs() []string {
	ids := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.Error == "" {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

// DatabaseInfo is one entry of a _dbs_info answer, passed through as sent.
type DatabaseInfo struct {
	Key   string                 `json:"key"`
	Info  map[string]interface{} `json:"info,omitempty"`
	Error string                 `json:"error,omitempty"`
}

// ServerInfo is the welcome message of a CouchDB instance.
type ServerInfo struct {
	CouchDB  string            `json:"couchdb"`
	Version  string            `json:"version"`
	GitSHA   string            `json:"git_sha,omitempty"`
	UUID     string            `json:"uuid,omitempty"`
	Features []string          `json:"features,omitempty"`
	Vendor   map[string]string `json:"vendor,omitempty"`
}

// Task describes an active task running on an instance, e.g. a continuous replication
type Task map[string]interface{}

// Type of the task, e.g. indexer or replication
func (t Task) Type() string {
	typ, _ := t["type"].(string)
	return typ
}

// IsReplication reports whether the task is a replication
func (t Task) IsReplication() bool {
	return t.Type() == "replication"
}

// HasReplicationID reports whether the task is the replication with the given id
func (t Task) HasReplicationID(id string) bool {
	replID, _ := t["replication_id"].(string)
	return id != "" && strings.HasPrefix(replID, id)
}
