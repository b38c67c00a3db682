package couchtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var validDBName = regexp.MustCompile(`^[a-z][a-z0-9_$()+/-]*$`)

type database struct {
	docs map[string]map[string]interface{}
	seq  int
}

func newDatabase() *database {
	return &database{docs: make(map[string]map[string]interface{})}
}

func (d *database) info(name string) map[string]interface{} {
	return map[string]interface{}{
		"db_name":    name,
		"doc_count":  len(d.docs),
		"update_seq": strconv.Itoa(d.seq),
	}
}

// sortedIDs returns all document ids in ascending or descending order.
func (d *database) sortedIDs(descending bool) []string {
	ids := make([]string, 0, len(d.docs))
	for id := range d.docs {
		ids = append(ids, id)
	}
	if descending {
		sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	} else {
		sort.Strings(ids)
	}
	return ids
}

func (s *Server) handleCreateDb(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["db"]
	if !validDBName.MatchString(name) {
		writeError(w, http.StatusBadRequest, "illegal_database_name",
			"Name: '"+name+"'. Only lowercase characters (a-z), digits (0-9), and any of the characters _, $, (, ), +, -, and / are allowed. Must begin with a letter.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[name]; ok {
		writeError(w, http.StatusPreconditionFailed, "file_exists", "The database could not be created, the file already exists.")
		return
	}
	s.dbs[name] = newDatabase()
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true})
}

func (s *Server) handleDeleteDb(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["db"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[name]; !ok {
		writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
		return
	}
	delete(s.dbs, name)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *Server) handleDbInfo(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["db"]
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
		return
	}
	writeJSON(w, http.StatusOK, d.info(name))
}

// allDocsQuery holds the _all_docs parameters the fake understands.
type allDocsQuery struct {
	Keys        []string `json:"keys"`
	Key         *string  `json:"key"`
	StartKey    *string  `json:"startkey"`
	EndKey      *string  `json:"endkey"`
	Limit       *int     `json:"limit"`
	Skip        int      `json:"skip"`
	Descending  bool     `json:"descending"`
	IncludeDocs bool     `json:"include_docs"`
}

func parseAllDocsQuery(r *http.Request) (allDocsQuery, error) {
	var q allDocsQuery
	if r.Method == http.MethodPost {
		err := json.NewDecoder(r.Body).Decode(&q)
		return q, err
	}
	values := r.URL.Query()
	for param, target := range map[string]**string{"key": &q.Key, "startkey": &q.StartKey, "endkey": &q.EndKey} {
		if v := values.Get(param); v != "" {
			var s string
			if err := json.Unmarshal([]byte(v), &s); err != nil {
				return q, fmt.Errorf("invalid %s: %w", param, err)
			}
			*target = &s
		}
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", v)
		}
		q.Limit = &n
	}
	if v := values.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid skip %q", v)
		}
		q.Skip = n
	}
	q.Descending = values.Get("descending") == "true"
	q.IncludeDocs = values.Get("include_docs") == "true"
	return q, nil
}

func (s *Server) handleAllDocs(w http.ResponseWriter, r *http.Request) {
	q, err := parseAllDocsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "query_parse_error", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[mux.Vars(r)["db"]]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
		return
	}

	rows := make([]map[string]interface{}, 0)
	if q.Keys != nil {
		for _, id := range q.Keys {
			doc, ok := d.docs[id]
			if !ok {
				rows = append(rows, map[string]interface{}{"key": id, "error": "not_found"})
				continue
			}
			rows = append(rows, row(id, doc, q.IncludeDocs))
		}
	} else {
		for _, id := range d.sortedIDs(q.Descending) {
			if !inRange(id, q) {
				continue
			}
			rows = append(rows, row(id, d.docs[id], q.IncludeDocs))
		}
	}

	if q.Skip >= len(rows) {
		rows = rows[:0]
	} else {
		rows = rows[q.Skip:]
	}
	if q.Limit != nil && *q.Limit < len(rows) {
		rows = rows[:*q.Limit]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_rows": len(d.docs),
		"offset":     q.Skip,
		"rows":       rows,
	})
}

func inRange(id string, q allDocsQuery) bool {
	if q.Key != nil {
		return id == *q.Key
	}
	lo, hi := q.StartKey, q.EndKey
	if q.Descending {
		lo, hi = hi, lo
	}
	if lo != nil && id < *lo {
		return false
	}
	if hi != nil && id > *hi {
		return false
	}
	return true
}

func row(id string, doc map[string]interface{}, includeDoc bool) map[string]interface{} {
	r := map[string]interface{}{"id": id, "key": id, "value": map[string]interface{}{"rev": doc["_rev"]}}
	if includeDoc {
		r["doc"] = doc
	}
	return r
}

func (s *Server) handlePutDoc(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || doc == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Document must be a JSON object")
		return
	}
	if bodyID, ok := doc["_id"].(string); ok && bodyID != id {
		writeError(w, http.StatusBadRequest, "bad_request", "Document id must match the id in the url")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[vars["db"]]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
		return
	}

	rev, _ := doc["_rev"].(string)
	current, exists := d.docs[id]
	generation := 1
	if exists {
		if rev != current["_rev"] {
			writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
			return
		}
		generation = revGeneration(rev) + 1
	} else if rev != "" {
		writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
		return
	}

	newRev := strconv.Itoa(generation) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	doc["_id"] = id
	doc["_rev"] = newRev
	d.docs[id] = doc
	d.seq++
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": newRev})
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[vars["db"]]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
		return
	}
	doc, ok := d.docs[vars["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "missing")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func revGeneration(rev string) int {
	n, _ := strconv.Atoi(strings.SplitN(rev, "-", 2)[0])
	return n
}
