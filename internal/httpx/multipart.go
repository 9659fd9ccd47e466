package httpx

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Multipart accumulates a multipart/form-data body in memory.
type Multipart struct {
	buf    bytes.Buffer
	writer *multipart.Writer
	closed bool
}

// NewMultipart returns an empty form.
func NewMultipart() *Multipart {
	m := &Multipart{}
	m.writer = multipart.NewWriter(&m.buf)
	return m
}

// WriteField adds a plain text field.
func (m *Multipart) WriteField(name, value string) error {
	if m.closed {
		return fmt.Errorf("httpx: multipart form already closed")
	}
	return m.writer.WriteField(name, value)
}

// WriteFile adds a file part named field, copying its contents from r.
func (m *Multipart) WriteFile(field, filename, contentType string, r io.Reader) error {
	if m.closed {
		return fmt.Errorf("httpx: multipart form already closed")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(field), escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	part, err := m.writer.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("httpx: copy %s part: %w", field, err)
	}
	return nil
}

// Request finalizes the form and returns a POST request for path.
func (m *Multipart) Request(path, user string) (*Request, error) {
	if !m.closed {
		if err := m.writer.Close(); err != nil {
			return nil, err
		}
		m.closed = true
	}
	data := m.buf.Bytes()
	return &Request{
		Method: "POST",
		Path:   path,
		User:   user,
		Header: map[string][]string{"Content-Type": {m.writer.FormDataContentType()}},
		GetBody: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
