package transport

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestClone_IsDeep(t *testing.T) {
	orig := &Request{
		Method:  "POST",
		URL:     "http://example.com/a",
		Headers: http.Header{"X-Test": {"1"}},
		Query:   url.Values{"q": {"a"}},
		Body:    "x=1",
	}
	c := orig.Clone()
	c.Headers.Set("X-Test", "2")
	c.Query.Set("q", "b")
	c.Body = "x=2"

	assert.Equal(t, "1", orig.Headers.Get("X-Test"))
	assert.Equal(t, "a", orig.Query.Get("q"))
	assert.Equal(t, "x=1", orig.Body)
	assert.Nil(t, (*Request)(nil).Clone())
}

func TestRequestFullURL_MergesQuery(t *testing.T) {
	r := &Request{URL: "http://example.com/p?a=1", Query: url.Values{"b": {"2"}}}
	full, err := r.FullURL()
	require.NoError(t, err)

	u, err := url.Parse(full)
	require.NoError(t, err)
	assert.Equal(t, "1", u.Query().Get("a"))
	assert.Equal(t, "2", u.Query().Get("b"))
	assert.Equal(t, "example.com", r.Host())
	assert.Equal(t, "/p", r.Path())
}

func TestRequestBuild(t *testing.T) {
	r := &Request{
		Method:  "put",
		URL:     "http://example.com/",
		Headers: http.Header{"Content-Type": {"application/json"}, "Host": {"virtual.local"}},
		Body:    `{"a":1}`,
	}
	req, err := r.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "virtual.local", req.Host)
	assert.Equal(t, int64(7), req.ContentLength)
	assert.Equal(t, "application/json", r.ContentType())

	get, err := (&Request{URL: "http://example.com/"}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, get.Method)
	assert.Nil(t, get.Body)
}

func TestResponseLen(t *testing.T) {
	var nilResp *Response
	assert.Equal(t, 0, nilResp.Len())
	assert.Equal(t, 3, (&Response{Body: []byte("abc")}).Len())
}

func TestSenderFunc(t *testing.T) {
	var s Sender = SenderFunc(func(ctx context.Context, req *Request, timeout time.Duration) (*Response, error) {
		return &Response{Request: req, StatusCode: 204}, nil
	})
	resp, err := s.Send(context.Background(), &Request{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}
