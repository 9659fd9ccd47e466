package sandbox

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

type kvTable struct {
	indexType string
	open      bool
	entries   map[string][]byte
	cursor    *kvCursor
}

type kvCursor struct {
	keys []string
	pos  int
}

type kvRequest struct {
	PodName     string  `json:"pod_name"`
	TableName   string  `json:"table_name"`
	IndexType   string  `json:"indexType"`
	Key         string  `json:"key"`
	Value       string  `json:"value"`
	StartPrefix string  `json:"start_prefix"`
	EndPrefix   *string `json:"end_prefix"`
	Limit       *int    `json:"limit"`
}

func (p *podState) createStore(name, indexType string) error {
	if strings.TrimSpace(name) == "" {
		return badRequest("kv new: table name is required")
	}
	switch indexType {
	case "":
		indexType = "string"
	case "string", "number":
	default:
		return badRequest("kv new: invalid index type " + indexType)
	}
	if _, ok := p.stores[name]; ok {
		return badRequest("kv new: table already present")
	}
	p.stores[name] = &kvTable{indexType: indexType, entries: make(map[string][]byte)}
	return nil
}

func (t *kvTable) put(key string, value []byte) error {
	if t.indexType == "number" {
		if _, err := strconv.ParseFloat(key, 64); err != nil {
			return badRequest("kv put: key " + key + " is not a number")
		}
	}
	t.entries[key] = value
	return nil
}

// less orders keys by the index type of the table.
func (t *kvTable) less(a, b string) bool {
	if t.indexType == "number" {
		x, _ := strconv.ParseFloat(a, 64)
		y, _ := strconv.ParseFloat(b, 64)
		if x != y {
			return x < y
		}
	}
	return a < b
}

// seek selects the keys from start onwards. A string table stops before
// end unless the key has end as a prefix; a number table includes end.
func (t *kvTable) seek(start string, end *string, limit *int) {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		if start != "" && t.less(k, start) {
			continue
		}
		if end != nil && *end != "" {
			if t.indexType == "number" {
				if t.less(*end, k) {
					continue
				}
			} else if !t.less(k, *end) && !strings.HasPrefix(k, *end) {
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return t.less(keys[i], keys[j]) })
	if limit != nil && *limit > 0 && len(keys) > *limit {
		keys = keys[:*limit]
	}
	t.cursor = &kvCursor{keys: keys}
}

func openStore(acct *account, podName, name, op string) (*kvTable, error) {
	p, err := openPod(acct, podName, op)
	if err != nil {
		return nil, err
	}
	t, ok := p.stores[name]
	if !ok {
		return nil, notFound(op + ": table does not exist")
	}
	if !t.open {
		return nil, badRequest(op + ": table not open")
	}
	return t, nil
}

func (s *Server) handleKVNew(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req kvRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "kv new")
	if err != nil {
		return err
	}
	if err := p.createStore(req.TableName, req.IndexType); err != nil {
		return err
	}
	writeMessage(w, http.StatusCreated, "kv store created")
	return nil
}

func (s *Server) handleKVOpen(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req kvRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "kv open")
	if err != nil {
		return err
	}
	t, ok := p.stores[req.TableName]
	if !ok {
		return notFound("kv open: table does not exist")
	}
	t.open = true
	writeMessage(w, http.StatusOK, "kv store opened")
	return nil
}

func (s *Server) handleKVDelete(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req kvRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "kv delete")
	if err != nil {
		return err
	}
	if _, ok := p.stores[req.TableName]; !ok {
		return notFound("kv delete: table does not exist")
	}
	delete(p.stores, req.TableName)
	writeMessage(w, http.StatusOK, "kv store deleted")
	return nil
}

func (s *Server) handleKVList(w http.ResponseWriter, r *http.Request, acct *account) error {
	p, err := openPod(acct, r.URL.Query().Get("pod_name"), "kv ls")
	if err != nil {
		return err
	}
	type table struct {
		TableName string   `json:"table_name"`
		Indexes   []string `json:"indexes"`
		Type      string   `json:"type"`
	}
	tables := []table{}
	for _, name := range sortedKeys(p.stores) {
		tables = append(tables, table{TableName: name, Indexes: []string{"key"}, Type: p.stores[name].indexType})
	}
	writeJSON(w, http.StatusOK, map[string]any{"Tables": tables})
	return nil
}

func (s *Server) handleKVPut(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req kvRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	t, err := openStore(acct, req.PodName, req.TableName, "kv put")
	if err != nil {
		return err
	}
	if req.Key == "" {
		return badRequest("kv put: key is required")
	}
	if err := t.put(req.Key, []byte(req.Value)); err != nil {
		return err
	}
	writeMessage(w, http.StatusCreated, "key added")
	return nil
}

func (s *Server) handleKVGet(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	t, err := openStore(acct, q.Get("pod_name"), q.Get("table_name"), "kv get")
	if err != nil {
		return err
	}
	key := q.Get("key")
	value, ok := t.entries[key]
	if !ok {
		return notFound("kv get: key not found")
	}
	encoded := string(value)
	if q.Get("format") == "byte-string" {
		encoded = base64.StdEncoding.EncodeToString(value)
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": []string{key}, "values": encoded})
	return nil
}

func (s *Server) handleKVDel(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req kvRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	t, err := openStore(acct, req.PodName, req.TableName, "kv del")
	if err != nil {
		return err
	}
	if _, ok := t.entries[req.Key]; !ok {
		return notFound("kv del: key not found")
	}
	delete(t.entries, req.Key)
	writeMessage(w, http.StatusOK, "key deleted")
	return nil
}

func (s *Server) handleKVCount(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req kvRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	t, err := openStore(acct, req.PodName, req.TableName, "kv count")
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(t.entries), "table_name": req.TableName})
	return nil
}

func (s *Server) handleKVPresent(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	t, err := openStore(acct, q.Get("pod_name"), q.Get("table_name"), "kv present")
	if err != nil {
		return err
	}
	_, ok := t.entries[q.Get("key")]
	writeJSON(w, http.StatusOK, map[string]bool{"present": ok})
	return nil
}

func (s *Server) handleKVLoadCSV(w http.ResponseWriter, r *http.Request, acct *account) error {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return badRequest("kv loadcsv: " + err.Error())
	}
	t, err := openStore(acct, r.FormValue("pod_name"), r.FormValue("table_name"), "kv loadcsv")
	if err != nil {
		return err
	}
	src, _, err := r.FormFile("csv")
	if err != nil {
		return badRequest("kv loadcsv: csv file is required")
	}
	defer src.Close()

	total, failed, err := loadCSV(t, src)
	if err != nil {
		return badRequest("kv loadcsv: " + err.Error())
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("csv file loaded in to kv table (%s) with total:%d, success: %d, failure: %d rows",
		r.FormValue("table_name"), total, total-failed, failed))
	return nil
}

// loadCSV stores each row under its first column. The value is a JSON
// object mapping header names to the row cells.
func loadCSV(t *kvTable, src io.Reader) (total, failed int, err error) {
	cr := csv.NewReader(src)
	header, err := cr.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read header: %w", err)
	}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return total, failed, nil
		}
		total++
		if err != nil || len(row) != len(header) || row[0] == "" {
			failed++
			continue
		}
		obj := make(map[string]string, len(header))
		for i, name := range header {
			obj[name] = row[i]
		}
		value, err := json.Marshal(obj)
		if err != nil {
			failed++
			continue
		}
		if err := t.put(row[0], value); err != nil {
			failed++
		}
	}
}

func (s *Server) handleKVSeek(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req kvRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	t, err := openStore(acct, req.PodName, req.TableName, "kv seek")
	if err != nil {
		return err
	}
	t.seek(req.StartPrefix, req.EndPrefix, req.Limit)
	writeMessage(w, http.StatusOK, "seeked closest to the start key")
	return nil
}

func (s *Server) handleKVSeekNext(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	t, err := openStore(acct, q.Get("pod_name"), q.Get("table_name"), "kv seek/next")
	if err != nil {
		return err
	}
	if t.cursor == nil {
		return badRequest("kv seek/next: seek not called")
	}
	for t.cursor.pos < len(t.cursor.keys) {
		key := t.cursor.keys[t.cursor.pos]
		t.cursor.pos++
		value, ok := t.entries[key]
		if !ok {
			continue
		}
		writeJSON(w, http.StatusOK, map[string]any{"keys": []string{key}, "values": string(value)})
		return nil
	}
	return notFound("kv seek/next: no more keys")
}
