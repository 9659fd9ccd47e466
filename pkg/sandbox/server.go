// Package sandbox is an in-memory stand-in for a FairOS-dfs server.
//
// Server implements the /v1 HTTP API used by the client packages: accounts
// and cookie sessions, pods and pod sharing, directories and block-stored
// files with optional gzip or snappy compression, key-value stores with
// seek cursors and document databases with single-field queries. Nothing
// is encrypted or persisted. It backs the unit tests, the mock runtime
// mode and the fairos-sandbox command.
package sandbox

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l hclog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server is an http.Handler serving the FairOS-dfs API under /v1.
type Server struct {
	mu  sync.Mutex
	log hclog.Logger
	now func() time.Time
	mux *http.ServeMux

	users      map[string]*account
	archived   map[string]*account
	sessions   map[string]string
	podShares  map[string]*podShare
	fileShares map[string]*fileShare
}

// New returns an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		log:        hclog.NewNullLogger(),
		now:        time.Now,
		mux:        http.NewServeMux(),
		users:      make(map[string]*account),
		archived:   make(map[string]*account),
		sessions:   make(map[string]string),
		podShares:  make(map[string]*podShare),
		fileShares: make(map[string]*fileShare),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("POST /v1/user/signup", s.handleSignup)
	s.handle("POST /v1/user/login", s.handleLogin)
	s.handle("POST /v1/user/import", s.handleImport)
	s.handle("GET /v1/user/present", s.handleUserPresent)
	s.handle("GET /v1/user/isloggedin", s.handleIsLoggedIn)
	s.authed("DELETE /v1/user/delete", s.handleUserDelete)
	s.authed("POST /v1/user/logout", s.handleLogout)
	s.authed("POST /v1/user/export", s.handleExport)
	s.authed("GET /v1/user/stat", s.handleUserStat)

	s.authed("POST /v1/pod/new", s.handlePodNew)
	s.authed("POST /v1/pod/open", s.handlePodOpen)
	s.authed("POST /v1/pod/sync", s.handlePodSync)
	s.authed("POST /v1/pod/close", s.handlePodClose)
	s.authed("POST /v1/pod/share", s.handlePodShare)
	s.authed("DELETE /v1/pod/delete", s.handlePodDelete)
	s.authed("GET /v1/pod/present", s.handlePodPresent)
	s.authed("GET /v1/pod/ls", s.handlePodList)
	s.authed("GET /v1/pod/stat", s.handlePodStat)
	s.authed("GET /v1/pod/receive", s.handlePodReceive)
	s.authed("GET /v1/pod/receiveinfo", s.handlePodReceiveInfo)

	s.authed("POST /v1/dir/mkdir", s.handleMkdir)
	s.authed("DELETE /v1/dir/rmdir", s.handleRmdir)
	s.authed("GET /v1/dir/ls", s.handleDirList)
	s.authed("GET /v1/dir/present", s.handleDirPresent)
	s.authed("GET /v1/dir/stat", s.handleDirStat)
	s.authed("POST /v1/file/upload", s.handleUpload)
	s.authed("POST /v1/file/download", s.handleDownload)
	s.authed("POST /v1/file/share", s.handleFileShare)
	s.authed("DELETE /v1/file/delete", s.handleFileDelete)
	s.authed("GET /v1/file/stat", s.handleFileStat)
	s.authed("GET /v1/file/receive", s.handleFileReceive)
	s.authed("GET /v1/file/receiveinfo", s.handleFileReceiveInfo)

	s.authed("POST /v1/kv/new", s.handleKVNew)
	s.authed("POST /v1/kv/open", s.handleKVOpen)
	s.authed("DELETE /v1/kv/delete", s.handleKVDelete)
	s.authed("GET /v1/kv/ls", s.handleKVList)
	s.authed("POST /v1/kv/entry/put", s.handleKVPut)
	s.authed("GET /v1/kv/entry/get", s.handleKVGet)
	s.authed("DELETE /v1/kv/entry/del", s.handleKVDel)
	s.authed("POST /v1/kv/count", s.handleKVCount)
	s.authed("GET /v1/kv/present", s.handleKVPresent)
	s.authed("POST /v1/kv/loadcsv", s.handleKVLoadCSV)
	s.authed("POST /v1/kv/seek", s.handleKVSeek)
	s.authed("GET /v1/kv/seek/next", s.handleKVSeekNext)

	s.authed("POST /v1/doc/new", s.handleDocNew)
	s.authed("POST /v1/doc/open", s.handleDocOpen)
	s.authed("DELETE /v1/doc/delete", s.handleDocDelete)
	s.authed("GET /v1/doc/ls", s.handleDocList)
	s.authed("POST /v1/doc/entry/put", s.handleDocPut)
	s.authed("GET /v1/doc/entry/get", s.handleDocGet)
	s.authed("DELETE /v1/doc/entry/del", s.handleDocDel)
	s.authed("GET /v1/doc/find", s.handleDocFind)
	s.authed("POST /v1/doc/count", s.handleDocCount)
	s.authed("POST /v1/doc/loadjson", s.handleDocLoadJSON)
	s.authed("POST /v1/doc/indexjson", s.handleDocIndexJSON)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", s.now().Sub(start))
}

// Users lists the registered usernames.
func (s *Server) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.users)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// apiError is returned by handlers and rendered as the error envelope.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(msg string) error { return &apiError{status: http.StatusBadRequest, message: msg} }
func notFound(msg string) error   { return &apiError{status: http.StatusNotFound, message: msg} }

type handlerFunc func(w http.ResponseWriter, r *http.Request) error
type authedFunc func(w http.ResponseWriter, r *http.Request, acct *account) error

func (s *Server) handle(pattern string, h handlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		err := h(w, r)
		s.mu.Unlock()
		if err != nil {
			writeError(w, err)
		}
	})
}

func (s *Server) authed(pattern string, h authedFunc) {
	s.handle(pattern, func(w http.ResponseWriter, r *http.Request) error {
		acct, err := s.sessionAccount(r)
		if err != nil {
			return err
		}
		return h(w, r, acct)
	})
}

func (s *Server) sessionAccount(r *http.Request) (*account, error) {
	ck, err := r.Cookie(httpx.CookieName)
	if err != nil || ck.Value == "" {
		return nil, &apiError{status: http.StatusUnauthorized, message: "cookie: missing session cookie"}
	}
	name, ok := s.sessions[ck.Value]
	if !ok {
		return nil, &apiError{status: http.StatusUnauthorized, message: "cookie: session expired or invalid"}
	}
	acct, ok := s.users[name]
	if !ok {
		return nil, &apiError{status: http.StatusUnauthorized, message: "cookie: user not found"}
	}
	return acct, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg, "code": status})
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		writeMessage(w, apiErr.status, apiErr.message)
		return
	}
	writeMessage(w, http.StatusInternalServerError, err.Error())
}

func decodeBody(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return badRequest("decode request: " + err.Error())
	}
	return nil
}

func required(fields map[string]string) error {
	for _, name := range sortedKeys(fields) {
		if strings.TrimSpace(fields[name]) == "" {
			return badRequest(name + " is required")
		}
	}
	return nil
}
