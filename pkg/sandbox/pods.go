package sandbox

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
)

type podState struct {
	name     string
	password string
	address  string
	owner    string
	open     bool
	created  time.Time

	dirs   map[string]*dirNode
	files  map[string]*fileNode
	stores map[string]*kvTable
	tables map[string]*docTable
}

func newPod(owner *account, name, password string, now time.Time) *podState {
	return &podState{
		name:     name,
		password: password,
		address:  addressOf(owner.address + "/" + name),
		owner:    owner.name,
		created:  now,
		dirs:     map[string]*dirNode{"/": {created: now, modified: now, accessed: now}},
		files:    make(map[string]*fileNode),
		stores:   make(map[string]*kvTable),
		tables:   make(map[string]*docTable),
	}
}

type podShare struct {
	ref      string
	pod      *podState
	owner    *account
	sharedAt time.Time
}

type podRequest struct {
	PodName  string `json:"pod_name"`
	Password string `json:"password"`
}

func newRef() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Server) createPod(acct *account, name, password string) (*podState, error) {
	if strings.TrimSpace(name) == "" {
		return nil, badRequest("pod new: pod name is required")
	}
	if _, ok := acct.pods[name]; ok {
		return nil, badRequest("pod new: pod already present")
	}
	p := newPod(acct, name, password, s.now())
	p.open = true
	acct.pods[name] = p
	return p, nil
}

// openPod returns a pod that was opened by its owner.
func openPod(acct *account, name, op string) (*podState, error) {
	p, ok := acct.pods[name]
	if !ok {
		return nil, notFound(op + ": pod does not exist")
	}
	if !p.open {
		return nil, badRequest(op + ": pod not open")
	}
	return p, nil
}

func (s *Server) handlePodNew(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req podRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if err := required(map[string]string{"pod_name": req.PodName, "password": req.Password}); err != nil {
		return err
	}
	if _, err := s.createPod(acct, req.PodName, req.Password); err != nil {
		return err
	}
	writeMessage(w, http.StatusCreated, "pod created successfully")
	return nil
}

func (s *Server) handlePodOpen(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req podRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, ok := acct.pods[req.PodName]
	if !ok {
		return notFound("pod open: pod does not exist")
	}
	if p.password != req.Password {
		return badRequest("pod open: invalid password")
	}
	p.open = true
	writeMessage(w, http.StatusOK, "pod open successful")
	return nil
}

func (s *Server) handlePodSync(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req podRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if _, err := openPod(acct, req.PodName, "pod sync"); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "pod synced successfully")
	return nil
}

func (s *Server) handlePodClose(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req podRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "pod close")
	if err != nil {
		return err
	}
	p.open = false
	writeMessage(w, http.StatusOK, "pod closed successfully")
	return nil
}

func (s *Server) handlePodShare(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req podRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, ok := acct.pods[req.PodName]
	if !ok {
		return notFound("pod share: pod does not exist")
	}
	if p.password != req.Password {
		return badRequest("pod share: invalid password")
	}
	share := &podShare{ref: newRef(), pod: p, owner: acct, sharedAt: s.now()}
	s.podShares[share.ref] = share
	writeJSON(w, http.StatusOK, map[string]string{"pod_sharing_reference": share.ref})
	return nil
}

func (s *Server) handlePodDelete(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req podRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, ok := acct.pods[req.PodName]
	if !ok {
		return notFound("pod delete: pod does not exist")
	}
	if p.password != req.Password {
		return badRequest("pod delete: invalid password")
	}
	delete(acct.pods, req.PodName)
	for ref, share := range s.podShares {
		if share.pod == p {
			delete(s.podShares, ref)
		}
	}
	writeMessage(w, http.StatusOK, "pod deleted successfully")
	return nil
}

func (s *Server) handlePodPresent(w http.ResponseWriter, r *http.Request, acct *account) error {
	_, ok := acct.pods[r.URL.Query().Get("pod_name")]
	writeJSON(w, http.StatusOK, map[string]bool{"present": ok})
	return nil
}

func (s *Server) handlePodList(w http.ResponseWriter, _ *http.Request, acct *account) error {
	writeJSON(w, http.StatusOK, map[string][]string{
		"pod_name":        sortedKeys(acct.pods),
		"shared_pod_name": sortedKeys(acct.shared),
	})
	return nil
}

func (s *Server) handlePodStat(w http.ResponseWriter, r *http.Request, acct *account) error {
	p, ok := acct.pods[r.URL.Query().Get("pod_name")]
	if !ok {
		return notFound("pod stat: pod does not exist")
	}
	writeJSON(w, http.StatusOK, map[string]string{"pod_name": p.name, "address": p.address})
	return nil
}

func (s *Server) handlePodReceive(w http.ResponseWriter, r *http.Request, acct *account) error {
	share, ok := s.podShares[r.URL.Query().Get("sharing_ref")]
	if !ok {
		return notFound("pod receive: invalid sharing reference")
	}
	if _, ok := acct.pods[share.pod.name]; ok {
		return badRequest("pod receive: pod already present")
	}
	acct.shared[share.pod.name] = share
	writeMessage(w, http.StatusOK, "public pod "+share.pod.name+", added as shared pod")
	return nil
}

func (s *Server) handlePodReceiveInfo(w http.ResponseWriter, r *http.Request, _ *account) error {
	share, ok := s.podShares[r.URL.Query().Get("sharing_ref")]
	if !ok {
		return notFound("pod receiveinfo: invalid sharing reference")
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"pod_name":     share.pod.name,
		"pod_address":  share.pod.address,
		"user_name":    share.owner.name,
		"user_address": share.owner.address,
		"shared_time":  dfsapi.FormatUnix(share.sharedAt),
	})
	return nil
}
