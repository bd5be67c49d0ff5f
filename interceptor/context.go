package interceptor

import "net/http"

// Context is the in-flight state of one call as seen by hooks. The request
// is mutable until it is transmitted; hooks of the same phase communicate
// only through it and through the config bag.
type Context struct {
	input    any
	request  *http.Request
	response *http.Response
	output   any
	err      error
	attempt  int
}

// NewContext creates a Context for a call with the given operation input.
func NewContext(input any) *Context {
	return &Context{input: input}
}

// Input returns the operation input.
func (c *Context) Input() any {
	return c.input
}

// Request returns the request being prepared or transmitted, or nil before
// it has been built.
func (c *Context) Request() *http.Request {
	return c.request
}

// SetRequest replaces the in-flight request.
func (c *Context) SetRequest(req *http.Request) {
	c.request = req
}

// Response returns the transport response, or nil before transmission.
func (c *Context) Response() *http.Response {
	return c.response
}

// SetResponse records the transport response.
func (c *Context) SetResponse(resp *http.Response) {
	c.response = resp
}

// Output returns the deserialized output, if any.
func (c *Context) Output() any {
	return c.output
}

// SetOutput records the deserialized output.
func (c *Context) SetOutput(out any) {
	c.output = out
}

// Err returns the call error recorded so far.
func (c *Context) Err() error {
	return c.err
}

// SetErr records the call error.
func (c *Context) SetErr(err error) {
	c.err = err
}

// Attempt returns the 1-based attempt number, or 0 outside the attempt loop.
func (c *Context) Attempt() int {
	return c.attempt
}

// SetAttempt records the current attempt number.
func (c *Context) SetAttempt(n int) {
	c.attempt = n
}
