package presign

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// PresignedRequest is a signed request that can be sent later without
// credentials. Its fields are copies; mutating them does not affect other
// holders.
type PresignedRequest struct {
	method string
	url    *url.URL
	header http.Header
}

// NewPresignedRequest captures method, URL and headers of a signed request.
func NewPresignedRequest(method string, u *url.URL, header http.Header) *PresignedRequest {
	cp := *u
	if u.User != nil {
		user := *u.User
		cp.User = &user
	}
	return &PresignedRequest{method: method, url: &cp, header: header.Clone()}
}

// Method returns the HTTP method.
func (p *PresignedRequest) Method() string {
	return p.method
}

// URL returns a copy of the presigned URL.
func (p *PresignedRequest) URL() *url.URL {
	cp := *p.url
	return &cp
}

// Header returns a copy of the headers that must accompany the request.
func (p *PresignedRequest) Header() http.Header {
	return p.header.Clone()
}

// ToHTTPRequest builds a sendable request carrying body.
func (p *PresignedRequest) ToHTTPRequest(body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(p.method, p.url.String(), body)
	if err != nil {
		return nil, fmt.Errorf("presign: build request: %w", err)
	}
	req.Header = p.header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	return req, nil
}

// String implements fmt.Stringer. Query values are omitted because they
// usually carry the signature.
func (p *PresignedRequest) String() string {
	u := *p.url
	u.RawQuery = ""
	return fmt.Sprintf("PresignedRequest{%s %s, %d headers}", p.method, u.String(), len(p.header))
}
