package dfsapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message is the envelope FairOS-dfs uses for plain acknowledgements and
// for error bodies.
type Message struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Present is returned by the */present and */isloggedin endpoints.
type Present struct {
	Present  bool `json:"present"`
	LoggedIn bool `json:"loggedin"`
}

// Int64 decodes integers that the server may send either as JSON numbers or
// as decimal strings.
type Int64 int64

func (n *Int64) UnmarshalJSON(data []byte) error {
	raw, err := unquote(data)
	if err != nil {
		return err
	}
	if raw == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("dfsapi: invalid integer %q", raw)
	}
	*n = Int64(v)
	return nil
}

func (n Int64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(n), 10))
}

// UnixTime decodes unix-second timestamps sent as strings or numbers.
type UnixTime struct {
	time.Time
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	raw, err := unquote(data)
	if err != nil {
		return err
	}
	if raw == "" || raw == "0" {
		t.Time = time.Time{}
		return nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("dfsapi: invalid unix time %q", raw)
	}
	t.Time = time.Unix(secs, 0).UTC()
	return nil
}

func (t UnixTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return json.Marshal("0")
	}
	return json.Marshal(strconv.FormatInt(t.Unix(), 10))
}

// FormatUnix renders t the way the server does.
func FormatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// DecodeBase64JSON decodes a standard base64 string holding a JSON document
// into out.
func DecodeBase64JSON(encoded string, out any) error {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return fmt.Errorf("dfsapi: decode base64 payload: %w", err)
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), out); err != nil {
		return fmt.Errorf("dfsapi: decode json payload: %w", err)
	}
	return nil
}

// EncodeBase64JSON is the inverse of DecodeBase64JSON.
func EncodeBase64JSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func unquote(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	return string(trimmed), nil
}
