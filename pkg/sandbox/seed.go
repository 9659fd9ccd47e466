package sandbox

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/fairdatasociety/fairos_sdk_go/internal/devseed"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/fs"
)

// Seed creates the users described by seed together with their pods and
// pod contents. Pods, stores and databases are left closed, as after a
// server restart. Problems are collected and returned together.
func (s *Server) Seed(seed *devseed.Seed) error {
	if seed == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *multierror.Error
	for _, u := range seed.Users {
		acct, err := s.signup(u.Username, u.Password, u.Mnemonic)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("sandbox: seed user %s: %w", u.Username, err))
			continue
		}
		for _, sp := range u.Pods {
			if err := s.seedPod(acct, u, sp); err != nil {
				result = multierror.Append(result, fmt.Errorf("sandbox: seed pod %s/%s: %w", u.Username, sp.Name, err))
			}
		}
	}
	return result.ErrorOrNil()
}

func (s *Server) seedPod(acct *account, u devseed.User, sp devseed.Pod) error {
	password := sp.Password
	if password == "" {
		password = u.Password
	}
	p, err := s.createPod(acct, sp.Name, password)
	if err != nil {
		return err
	}
	defer func() { p.open = false }()

	now := s.now()
	var result *multierror.Error
	for _, dir := range sp.Dirs {
		if err := p.mkdirAll(dir, now); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, f := range sp.Files {
		if err := seedFile(p, f, now); err != nil {
			result = multierror.Append(result, fmt.Errorf("file %s: %w", f.Path, err))
		}
	}
	for _, st := range sp.Stores {
		if err := seedStore(p, st); err != nil {
			result = multierror.Append(result, fmt.Errorf("kv %s: %w", st.Name, err))
		}
	}
	for _, db := range sp.Tables {
		if err := seedTable(p, db); err != nil {
			result = multierror.Append(result, fmt.Errorf("docs %s: %w", db.Name, err))
		}
	}
	return result.ErrorOrNil()
}

func seedFile(p *podState, f devseed.File, now time.Time) error {
	data, err := f.Data()
	if err != nil {
		return err
	}
	bs := fs.DefaultBlockSize
	if f.BlockSize != "" {
		if bs, err = fs.ParseBlockSize(f.BlockSize); err != nil {
			return err
		}
	}
	compression, err := fs.ParseCompression(f.Compression)
	if err != nil {
		return err
	}
	dir := path.Dir(path.Clean(f.Path))
	if err := p.mkdirAll(dir, now); err != nil {
		return err
	}
	return p.writeFile(dir, path.Base(f.Path), data, f.ContentType, bs, compression, now)
}

func seedStore(p *podState, st devseed.Store) error {
	if err := p.createStore(st.Name, st.IndexType); err != nil {
		return err
	}
	t := p.stores[st.Name]
	for key, value := range st.Entries {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("key %s: %w", key, err)
		}
		if err := t.put(key, encoded); err != nil {
			return err
		}
	}
	return nil
}

func seedTable(p *podState, db devseed.Database) error {
	if err := p.createTable(db.Name, db.Fields, db.Mutable); err != nil {
		return err
	}
	t := p.tables[db.Name]
	for i, doc := range db.Documents {
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		if _, err := t.put(raw); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
