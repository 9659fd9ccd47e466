package sandbox

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	docIDField   = "id"
	defaultLimit = 100
)

// Field type codes reported by doc/ls.
var fieldTypeCodes = map[string]int{"string": 2, "number": 3, "map": 4}

type docTable struct {
	fields  map[string]string
	mutable bool
	open    bool
	docs    map[string]document
}

type document struct {
	raw    []byte
	fields map[string]any
}

type docRequest struct {
	PodName   string `json:"pod_name"`
	TableName string `json:"table_name"`
	Indexes   string `json:"si"`
	Mutable   bool   `json:"mutable"`
	Doc       string `json:"doc"`
	ID        string `json:"id"`
	Expr      string `json:"expr"`
	FileName  string `json:"file_name"`
}

// parseIndexes reads the "name=type,..." form of doc/new.
func parseIndexes(si string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(si, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid index %q", part)
		}
		typ = strings.ToLower(strings.TrimSpace(typ))
		if _, ok := fieldTypeCodes[typ]; !ok {
			return nil, fmt.Errorf("invalid index type %q", typ)
		}
		fields[strings.TrimSpace(name)] = typ
	}
	return fields, nil
}

func (p *podState) createTable(name string, fields map[string]string, mutable bool) error {
	if strings.TrimSpace(name) == "" {
		return badRequest("doc new: table name is required")
	}
	if _, ok := p.tables[name]; ok {
		return badRequest("doc new: table already present")
	}
	for field, typ := range fields {
		if _, ok := fieldTypeCodes[typ]; !ok {
			return badRequest(fmt.Sprintf("doc new: field %s has invalid type %q", field, typ))
		}
	}
	p.tables[name] = &docTable{fields: fields, mutable: mutable, docs: make(map[string]document)}
	return nil
}

// put stores raw, assigning an id when the document has none.
func (t *docTable) put(raw []byte) (string, error) {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return "", badRequest("doc put: document is not a JSON object")
	}
	id, _ := fields[docIDField].(string)
	if id == "" {
		id = uuid.NewString()
		fields[docIDField] = id
		var err error
		if raw, err = json.Marshal(fields); err != nil {
			return "", err
		}
	}
	if _, ok := t.docs[id]; ok && !t.mutable {
		return "", badRequest("doc put: document " + id + " already present")
	}
	for name, typ := range t.fields {
		v, ok := fields[name]
		if !ok {
			continue
		}
		switch typ {
		case "number":
			if _, isNum := v.(json.Number); !isNum {
				return "", badRequest("doc put: field " + name + " is not a number")
			}
		case "string":
			if _, isStr := v.(string); !isStr {
				return "", badRequest("doc put: field " + name + " is not a string")
			}
		}
	}
	t.docs[id] = document{raw: bytes.TrimSpace(raw), fields: fields}
	return id, nil
}

// load stores every document of a JSON array or of newline separated
// objects and returns how many were stored and how many were rejected.
func (t *docTable) load(r io.Reader) (ok, failed int, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, 0, err
	}
	data = bytes.TrimSpace(data)
	var docs []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &docs); err != nil {
			return 0, 0, fmt.Errorf("invalid JSON array: %w", err)
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), maxUploadMemory)
		for sc.Scan() {
			if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
				docs = append(docs, append(json.RawMessage(nil), line...))
			}
		}
		if err := sc.Err(); err != nil {
			return 0, 0, err
		}
	}
	for _, doc := range docs {
		if _, err := t.put(doc); err != nil {
			failed++
			continue
		}
		ok++
	}
	return ok, failed, nil
}

// query is a parsed find or count expression. An empty field matches all.
type query struct {
	field string
	op    string
	str   *string
	num   *float64
}

func parseQuery(expr string) (*query, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &query{}, nil
	}
	i := strings.IndexAny(expr, "=<>")
	if i <= 0 {
		return nil, fmt.Errorf("invalid expression %q", expr)
	}
	q := &query{field: strings.TrimSpace(expr[:i]), op: expr[i : i+1]}
	if q.op != "=" && i+1 < len(expr) && expr[i+1] == '=' {
		q.op += "="
	}
	raw := strings.TrimSpace(expr[i+len(q.op):])
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		s := raw[1 : len(raw)-1]
		q.str = &s
		return q, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expression value %q", raw)
	}
	q.num = &n
	return q, nil
}

func (q *query) match(doc document) bool {
	if q.field == "" {
		return true
	}
	v, ok := doc.fields[q.field]
	if !ok {
		return false
	}
	var cmp int
	switch {
	case q.str != nil:
		s, ok := v.(string)
		if !ok {
			return false
		}
		cmp = strings.Compare(s, *q.str)
	case q.num != nil:
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		f, err := n.Float64()
		if err != nil {
			return false
		}
		switch {
		case f < *q.num:
			cmp = -1
		case f > *q.num:
			cmp = 1
		}
	}
	switch q.op {
	case "=":
		return cmp == 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	}
	return false
}

// find returns the matching documents ordered by id.
func (t *docTable) find(expr string, limit int) ([]document, error) {
	q, err := parseQuery(expr)
	if err != nil {
		return nil, err
	}
	if q.field != "" && q.field != docIDField {
		if _, ok := t.fields[q.field]; !ok {
			return nil, fmt.Errorf("field %s is not indexed", q.field)
		}
	}
	ids := sortedKeys(t.docs)
	var out []document
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		if doc := t.docs[id]; q.match(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func openTable(acct *account, podName, name, op string) (*podState, *docTable, error) {
	p, err := openPod(acct, podName, op)
	if err != nil {
		return nil, nil, err
	}
	t, ok := p.tables[name]
	if !ok {
		return nil, nil, notFound(op + ": table does not exist")
	}
	if !t.open {
		return nil, nil, badRequest(op + ": table not open")
	}
	return p, t, nil
}

func (s *Server) handleDocNew(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req docRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "doc new")
	if err != nil {
		return err
	}
	fields, err := parseIndexes(req.Indexes)
	if err != nil {
		return badRequest("doc new: " + err.Error())
	}
	if err := p.createTable(req.TableName, fields, req.Mutable); err != nil {
		return err
	}
	writeMessage(w, http.StatusCreated, "document db created")
	return nil
}

func (s *Server) handleDocOpen(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req docRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "doc open")
	if err != nil {
		return err
	}
	t, ok := p.tables[req.TableName]
	if !ok {
		return notFound("doc open: table does not exist")
	}
	t.open = true
	writeMessage(w, http.StatusOK, "document store opened")
	return nil
}

func (s *Server) handleDocDelete(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req docRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "doc delete")
	if err != nil {
		return err
	}
	if _, ok := p.tables[req.TableName]; !ok {
		return notFound("doc delete: table does not exist")
	}
	delete(p.tables, req.TableName)
	writeMessage(w, http.StatusOK, "document db deleted")
	return nil
}

func (s *Server) handleDocList(w http.ResponseWriter, r *http.Request, acct *account) error {
	p, err := openPod(acct, r.URL.Query().Get("pod_name"), "doc ls")
	if err != nil {
		return err
	}
	type index struct {
		Name string `json:"name"`
		Type int    `json:"type"`
	}
	type table struct {
		TableName string  `json:"table_name"`
		Indexes   []index `json:"indexes"`
	}
	tables := []table{}
	for _, name := range sortedKeys(p.tables) {
		t := p.tables[name]
		indexes := []index{}
		for _, field := range sortedKeys(t.fields) {
			indexes = append(indexes, index{Name: field, Type: fieldTypeCodes[t.fields[field]]})
		}
		tables = append(tables, table{TableName: name, Indexes: indexes})
	}
	writeJSON(w, http.StatusOK, map[string]any{"Tables": tables})
	return nil
}

func (s *Server) handleDocPut(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req docRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	_, t, err := openTable(acct, req.PodName, req.TableName, "doc put")
	if err != nil {
		return err
	}
	if _, err := t.put([]byte(req.Doc)); err != nil {
		return err
	}
	writeMessage(w, http.StatusCreated, "added document to db")
	return nil
}

func (s *Server) handleDocGet(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	_, t, err := openTable(acct, q.Get("pod_name"), q.Get("table_name"), "doc get")
	if err != nil {
		return err
	}
	doc, ok := t.docs[q.Get("id")]
	if !ok {
		return notFound("doc get: document not found")
	}
	writeJSON(w, http.StatusOK, map[string]string{"doc": base64.StdEncoding.EncodeToString(doc.raw)})
	return nil
}

func (s *Server) handleDocDel(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req docRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	_, t, err := openTable(acct, req.PodName, req.TableName, "doc del")
	if err != nil {
		return err
	}
	if _, ok := t.docs[req.ID]; !ok {
		return notFound("doc del: document not found")
	}
	delete(t.docs, req.ID)
	writeMessage(w, http.StatusOK, "deleted document from db")
	return nil
}

func (s *Server) handleDocFind(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	_, t, err := openTable(acct, q.Get("pod_name"), q.Get("table_name"), "doc find")
	if err != nil {
		return err
	}
	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			return badRequest("doc find: invalid limit " + raw)
		}
	}
	found, err := t.find(q.Get("expr"), limit)
	if err != nil {
		return badRequest("doc find: " + err.Error())
	}
	encoded := make([]string, 0, len(found))
	for _, doc := range found {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(doc.raw))
	}
	writeJSON(w, http.StatusOK, map[string]any{"docs": encoded})
	return nil
}

func (s *Server) handleDocCount(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req docRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	_, t, err := openTable(acct, req.PodName, req.TableName, "doc count")
	if err != nil {
		return err
	}
	found, err := t.find(req.Expr, 0)
	if err != nil {
		return badRequest("doc count: " + err.Error())
	}
	writeMessage(w, http.StatusOK, strconv.Itoa(len(found)))
	return nil
}

func (s *Server) handleDocLoadJSON(w http.ResponseWriter, r *http.Request, acct *account) error {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return badRequest("doc loadjson: " + err.Error())
	}
	_, t, err := openTable(acct, r.FormValue("pod_name"), r.FormValue("table_name"), "doc loadjson")
	if err != nil {
		return err
	}
	src, _, err := r.FormFile("json")
	if err != nil {
		return badRequest("doc loadjson: json file is required")
	}
	defer src.Close()
	ok, failed, err := t.load(src)
	if err != nil {
		return badRequest("doc loadjson: " + err.Error())
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("json file loaded in to document db (%s) with total:%d, success: %d, failure: %d rows",
		r.FormValue("table_name"), ok+failed, ok, failed))
	return nil
}

func (s *Server) handleDocIndexJSON(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req docRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, t, err := openTable(acct, req.PodName, req.TableName, "doc indexjson")
	if err != nil {
		return err
	}
	data, _, err := p.readFile(req.FileName, s.now())
	if err != nil {
		return err
	}
	ok, failed, err := t.load(bytes.NewReader(data))
	if err != nil {
		return badRequest("doc indexjson: " + err.Error())
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("indexed %d documents, %d failed", ok, failed))
	return nil
}
