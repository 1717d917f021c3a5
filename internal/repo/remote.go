package repo

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

func joinURL(base, segment string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("repo: %w: bad base url %q: %v", ErrBadPath, base, err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + segment
	return u.String(), nil
}

// HTTPDir is a RepoDir backed by an HTTP tree. It is read-only: writes
// fail with ErrUnsupported, and because HTTP has no directory-listing
// primitive it cannot be refreshed or visited the way a local tree can
// (Refresh is a no-op and Visit enumerates nothing), matching that
// gap-detection over a remote tree is unsupported.
type HTTPDir struct {
	url     string
	name    string
	parent  *HTTPDir
	client  *http.Client
	headers map[string]string
}

// NewHTTPRoot builds the root of an HTTP-backed remote tree. headers
// is the fixed header map sent with every request, typically loaded
// once via LoadProperties. A nil client defaults to one with a
// conservative per-request timeout.
func NewHTTPRoot(baseURL string, headers map[string]string, client *http.Client) *HTTPDir {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPDir{url: strings.TrimRight(baseURL, "/"), client: client, headers: headers}
}

func (d *HTTPDir) nodeName() string       { return d.name }
func (d *HTTPDir) nodeParent() parentNode {
	if d.parent == nil {
		return nil
	}
	return d.parent
}

func (d *HTTPDir) newRequest(method, target string) (*http.Request, error) {
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("repo: %w: building request: %v", ErrTransport, err)
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (d *HTTPDir) Exists() bool {
	req, err := d.newRequest(http.MethodHead, d.url)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (d *HTTPDir) AsURI() string           { return d.url }
func (d *HTTPDir) Subpath(n int) []string { return subpathOf(d, n) }
func (d *HTTPDir) Name() string           { return d.name }

func (d *HTTPDir) NewObject(name string) (RepoObject, error) {
	target, err := joinURL(d.url, name)
	if err != nil {
		return nil, err
	}
	return &HTTPObject{url: target, name: name, parent: d, client: d.client, headers: d.headers}, nil
}

func (d *HTTPDir) NewDir(name string) (RepoDir, error) {
	target, err := joinURL(d.url, name)
	if err != nil {
		return nil, err
	}
	return &HTTPDir{url: target, name: name, parent: d, client: d.client, headers: d.headers}, nil
}

// Refresh is a no-op: an HTTP tree has no local cache to reconcile.
func (d *HTTPDir) Refresh() error { return nil }

// Visit enumerates nothing: HTTP has no directory-listing primitive,
// so gap-detection (iterate_missing) only ever runs against a sink
// tree, never a remote source.
func (d *HTTPDir) Visit(visitor RepoDirVisitor) bool { return true }

func (d *HTTPDir) LastModified() (time.Time, string, error) {
	return time.Time{}, "", fmt.Errorf("repo: %w: LastModified on a remote tree", ErrUnsupported)
}

// HTTPObject is a RepoObject backed by an HTTP GET/HEAD endpoint.
type HTTPObject struct {
	url     string
	name    string
	parent  *HTTPDir
	client  *http.Client
	headers map[string]string
}

func (o *HTTPObject) nodeName() string       { return o.name }
func (o *HTTPObject) nodeParent() parentNode { return o.parent }

func (o *HTTPObject) newRequest(method string) (*http.Request, error) {
	req, err := http.NewRequest(method, o.url, nil)
	if err != nil {
		return nil, fmt.Errorf("repo: %w: building request: %v", ErrTransport, err)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (o *HTTPObject) Exists() bool {
	req, err := o.newRequest(http.MethodHead)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *HTTPObject) AsURI() string           { return o.url }
func (o *HTTPObject) Subpath(n int) []string { return subpathOf(o, n) }
func (o *HTTPObject) Name() string           { return o.name }

// Read issues a streaming GET. A non-200 response yields an empty,
// already-closed stream and no error; a caller that cares must check
// Exists() first. bufsize documents the caller's preferred chunk size;
// the transport's own granularity is used underneath.
func (o *HTTPObject) Read(bufsize int) (io.ReadCloser, error) {
	req, err := o.newRequest(http.MethodGet)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repo: %w: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return resp.Body, nil
}

// Write always fails: remote HTTP trees are read-only.
func (o *HTTPObject) Write(r io.Reader, overwrite bool) error {
	return fmt.Errorf("repo: %w: write on a remote tree", ErrUnsupported)
}
