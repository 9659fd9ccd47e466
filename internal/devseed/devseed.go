// Package devseed loads sandbox seed files. A seed describes users and the
// pods, directories, files, key-value stores and document databases they
// own. Files ending in .yaml or .yml are parsed as YAML, anything else as
// JSON.
package devseed

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Seed is the root of a seed file.
type Seed struct {
	Users []User `json:"users" yaml:"users"`
}

// User is an account created at startup.
type User struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Mnemonic string `json:"mnemonic,omitempty" yaml:"mnemonic,omitempty"`
	Pods     []Pod  `json:"pods,omitempty" yaml:"pods,omitempty"`
}

// Pod is created for its user; Password defaults to the user password.
type Pod struct {
	Name     string     `json:"name" yaml:"name"`
	Password string     `json:"password,omitempty" yaml:"password,omitempty"`
	Dirs     []string   `json:"dirs,omitempty" yaml:"dirs,omitempty"`
	Files    []File     `json:"files,omitempty" yaml:"files,omitempty"`
	Stores   []Store    `json:"kv,omitempty" yaml:"kv,omitempty"`
	Tables   []Database `json:"docs,omitempty" yaml:"docs,omitempty"`
}

// File is stored at Path. Content holds text, Base64 binary data; only one
// of them may be set.
type File struct {
	Path        string `json:"path" yaml:"path"`
	Content     string `json:"content,omitempty" yaml:"content,omitempty"`
	Base64      string `json:"base64,omitempty" yaml:"base64,omitempty"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	BlockSize   string `json:"block_size,omitempty" yaml:"block_size,omitempty"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"`
}

// Data returns the decoded file contents.
func (f File) Data() ([]byte, error) {
	if f.Base64 != "" {
		return base64.StdEncoding.DecodeString(f.Base64)
	}
	return []byte(f.Content), nil
}

// Store is a key-value store with initial entries. Values are stored JSON
// encoded.
type Store struct {
	Name      string         `json:"name" yaml:"name"`
	IndexType string         `json:"index_type,omitempty" yaml:"index_type,omitempty"`
	Entries   map[string]any `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Database is a document database with initial documents.
type Database struct {
	Name      string            `json:"name" yaml:"name"`
	Fields    map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Mutable   bool              `json:"mutable,omitempty" yaml:"mutable,omitempty"`
	Documents []map[string]any  `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// LoadFile reads a seed from the operating system filesystem.
func LoadFile(path string) (*Seed, error) {
	return Load(afero.NewOsFs(), path)
}

// Load reads and validates a seed from fsys.
func Load(fsys afero.Fs, path string) (*Seed, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	var seed Seed
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("devseed: parse %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&seed); err != nil {
			return nil, fmt.Errorf("devseed: parse %s: %w", path, err)
		}
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate reports every structural problem of the seed at once.
func (s *Seed) Validate() error {
	var result *multierror.Error
	users := make(map[string]bool)
	for i, u := range s.Users {
		where := fmt.Sprintf("users[%d]", i)
		if strings.TrimSpace(u.Username) == "" {
			result = multierror.Append(result, fmt.Errorf("%s: username is required", where))
		} else if users[u.Username] {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate username %q", where, u.Username))
		}
		users[u.Username] = true
		if u.Password == "" {
			result = multierror.Append(result, fmt.Errorf("%s: password is required", where))
		}
		pods := make(map[string]bool)
		for j, p := range u.Pods {
			pw := fmt.Sprintf("%s.pods[%d]", where, j)
			if strings.TrimSpace(p.Name) == "" {
				result = multierror.Append(result, fmt.Errorf("%s: name is required", pw))
			} else if pods[p.Name] {
				result = multierror.Append(result, fmt.Errorf("%s: duplicate pod %q", pw, p.Name))
			}
			pods[p.Name] = true
			for k, f := range p.Files {
				if !strings.HasPrefix(f.Path, "/") {
					result = multierror.Append(result, fmt.Errorf("%s.files[%d]: path %q must be absolute", pw, k, f.Path))
				}
				if f.Content != "" && f.Base64 != "" {
					result = multierror.Append(result, fmt.Errorf("%s.files[%d]: content and base64 are exclusive", pw, k))
				}
				if _, err := f.Data(); err != nil {
					result = multierror.Append(result, fmt.Errorf("%s.files[%d]: %w", pw, k, err))
				}
			}
			for k, st := range p.Stores {
				if strings.TrimSpace(st.Name) == "" {
					result = multierror.Append(result, fmt.Errorf("%s.kv[%d]: name is required", pw, k))
				}
			}
			for k, db := range p.Tables {
				if strings.TrimSpace(db.Name) == "" {
					result = multierror.Append(result, fmt.Errorf("%s.docs[%d]: name is required", pw, k))
				}
			}
		}
	}
	return result.ErrorOrNil()
}
