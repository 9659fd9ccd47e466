package httpx

import (
	"net/http"
	"net/http/httptest"
)

// HandlerTransport returns a RoundTripper that serves every request with h
// in-process. Mock mode uses it to talk to the sandbox without a listener.
func HandlerTransport(h http.Handler) http.RoundTripper {
	return handlerTransport{handler: h}
}

type handlerTransport struct {
	handler http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
