package sandbox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tyler-smith/go-bip39"

	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
)

// Messages returned for well-known account failures.
const (
	msgUserPresent     = "user signup: user name already present"
	msgInvalidUsername = "user login: invalid user name"
	msgInvalidPassword = "user login: invalid password"
)

type account struct {
	name     string
	password string
	mnemonic string
	address  string
	created  time.Time
	pods     map[string]*podState
	shared   map[string]*podShare
}

func newAccount(name, password, mnemonic string, now time.Time) *account {
	return &account{
		name:     name,
		password: password,
		mnemonic: mnemonic,
		address:  addressOf(mnemonic),
		created:  now,
		pods:     make(map[string]*podState),
		shared:   make(map[string]*podShare),
	}
}

// addressOf derives a stable pseudo address from a mnemonic.
func addressOf(mnemonic string) string {
	sum := sha256.Sum256([]byte(mnemonic))
	return "0x" + hex.EncodeToString(sum[:20])
}

func newMnemonic() (string, error) {
	entropy := make([]byte, 16)
	if _, err := rand.Read(entropy); err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

type credentials struct {
	Username string `json:"user_name"`
	Password string `json:"password"`
	Mnemonic string `json:"mnemonic"`
	Address  string `json:"address"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) error {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if err := required(map[string]string{"user_name": req.Username, "password": req.Password}); err != nil {
		return err
	}
	res := map[string]string{}
	acct, err := s.signup(req.Username, req.Password, req.Mnemonic)
	if err != nil {
		return err
	}
	res["address"] = acct.address
	if req.Mnemonic == "" {
		res["mnemonic"] = acct.mnemonic
	}
	s.startSession(w, acct.name)
	writeJSON(w, http.StatusCreated, res)
	return nil
}

func (s *Server) signup(username, password, mnemonic string) (*account, error) {
	if _, ok := s.users[username]; ok {
		return nil, badRequest(msgUserPresent)
	}
	if mnemonic == "" {
		m, err := newMnemonic()
		if err != nil {
			return nil, err
		}
		mnemonic = m
	} else if !bip39.IsMnemonicValid(mnemonic) {
		return nil, badRequest("user signup: invalid mnemonic")
	}
	acct := newAccount(username, password, mnemonic, s.now())
	s.users[username] = acct
	s.log.Info("user created", "user", username, "address", acct.address)
	return acct, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	acct, ok := s.users[req.Username]
	if !ok {
		return badRequest(msgInvalidUsername)
	}
	if acct.password != req.Password {
		return badRequest(msgInvalidPassword)
	}
	s.startSession(w, acct.name)
	writeMessage(w, http.StatusOK, "user logged-in successfully")
	return nil
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) error {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if err := required(map[string]string{"user_name": req.Username, "password": req.Password}); err != nil {
		return err
	}
	if _, ok := s.users[req.Username]; ok {
		return badRequest("user import: user name already present")
	}

	var acct *account
	switch {
	case req.Mnemonic != "":
		if !bip39.IsMnemonicValid(req.Mnemonic) {
			return badRequest("user import: invalid mnemonic")
		}
		acct = newAccount(req.Username, req.Password, req.Mnemonic, s.now())
		if old, ok := s.archived[acct.address]; ok {
			acct.pods = old.pods
			delete(s.archived, acct.address)
		}
	case req.Address != "":
		old, ok := s.archived[req.Address]
		if !ok {
			return badRequest("user import: address not found")
		}
		delete(s.archived, req.Address)
		acct = newAccount(req.Username, req.Password, old.mnemonic, s.now())
		acct.pods = old.pods
	default:
		return badRequest("user import: address or mnemonic is required")
	}
	s.users[acct.name] = acct
	s.startSession(w, acct.name)
	writeJSON(w, http.StatusCreated, map[string]string{"address": acct.address})
	return nil
}

func (s *Server) handleUserPresent(w http.ResponseWriter, r *http.Request) error {
	_, ok := s.users[r.URL.Query().Get("user_name")]
	writeJSON(w, http.StatusOK, map[string]bool{"present": ok})
	return nil
}

func (s *Server) handleIsLoggedIn(w http.ResponseWriter, r *http.Request) error {
	name := r.URL.Query().Get("user_name")
	loggedIn := false
	for _, u := range s.sessions {
		if u == name {
			loggedIn = true
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"loggedin": loggedIn})
	return nil
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if req.Password != acct.password {
		return badRequest("user delete: invalid password")
	}
	delete(s.users, acct.name)
	s.archived[acct.address] = acct
	s.endSessions(acct.name)
	s.log.Info("user deleted", "user", acct.name)
	writeMessage(w, http.StatusOK, "user deleted successfully")
	return nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, acct *account) error {
	ck, _ := r.Cookie(httpx.CookieName)
	delete(s.sessions, ck.Value)
	writeMessage(w, http.StatusOK, "user logged out successfully")
	return nil
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request, acct *account) error {
	writeJSON(w, http.StatusOK, map[string]string{"user_name": acct.name, "address": acct.address})
	return nil
}

func (s *Server) handleUserStat(w http.ResponseWriter, _ *http.Request, acct *account) error {
	writeJSON(w, http.StatusOK, map[string]string{"user_name": acct.name, "address": acct.address})
	return nil
}

func (s *Server) startSession(w http.ResponseWriter, username string) {
	id := uuid.NewString()
	s.sessions[id] = username
	http.SetCookie(w, &http.Cookie{Name: httpx.CookieName, Value: id, Path: "/", HttpOnly: true})
}

func (s *Server) endSessions(username string) {
	for id, u := range s.sessions {
		if u == username {
			delete(s.sessions, id)
		}
	}
}
