package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Dir is a second, read-only remote tree implementation backed by
// S3, satisfying the same RepoDir contract as HTTPDir so a RepoFS can
// be built over either one as its source. Like the HTTP tree it has no
// listing-based Refresh/Visit: a single HeadObject or GetObject call
// per leaf is all the contract needs.
type S3Dir struct {
	client *s3.Client
	bucket string
	prefix string
	name   string
	parent *S3Dir
}

// NewS3Root builds the root of an S3-backed remote tree over bucket,
// optionally scoped under keyPrefix.
func NewS3Root(client *s3.Client, bucket, keyPrefix string) *S3Dir {
	return &S3Dir{client: client, bucket: bucket, prefix: strings.Trim(keyPrefix, "/")}
}

func (d *S3Dir) nodeName() string       { return d.name }
func (d *S3Dir) nodeParent() parentNode {
	if d.parent == nil {
		return nil
	}
	return d.parent
}

func (d *S3Dir) key(leaf string) string {
	if d.prefix == "" {
		return leaf
	}
	if leaf == "" {
		return d.prefix
	}
	return d.prefix + "/" + leaf
}

func (d *S3Dir) Exists() bool {
	out, err := d.client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket:  &d.bucket,
		Prefix:  strPtr(d.prefix),
		MaxKeys: int32Ptr(1),
	})
	return err == nil && len(out.Contents) > 0
}

func (d *S3Dir) AsURI() string           { return fmt.Sprintf("s3://%s/%s", d.bucket, d.prefix) }
func (d *S3Dir) Subpath(n int) []string { return subpathOf(d, n) }
func (d *S3Dir) Name() string           { return d.name }

func (d *S3Dir) NewObject(name string) (RepoObject, error) {
	return &S3Object{client: d.client, bucket: d.bucket, key: d.key(name), name: name, parent: d}, nil
}

func (d *S3Dir) NewDir(name string) (RepoDir, error) {
	return &S3Dir{client: d.client, bucket: d.bucket, prefix: d.key(name), name: name, parent: d}, nil
}

// Refresh is a no-op: gap-detection only ever runs against a sink tree.
func (d *S3Dir) Refresh() error { return nil }

// Visit enumerates nothing on a remote tree.
func (d *S3Dir) Visit(visitor RepoDirVisitor) bool { return true }

func (d *S3Dir) LastModified() (time.Time, string, error) {
	return time.Time{}, "", fmt.Errorf("repo: %w: LastModified on a remote tree", ErrUnsupported)
}

// S3Object is a RepoObject backed by a single S3 key.
type S3Object struct {
	client *s3.Client
	bucket string
	key    string
	name   string
	parent *S3Dir
}

func (o *S3Object) nodeName() string       { return o.name }
func (o *S3Object) nodeParent() parentNode { return o.parent }

func (o *S3Object) Exists() bool {
	_, err := o.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: &o.bucket,
		Key:    &o.key,
	})
	return err == nil
}

func (o *S3Object) AsURI() string           { return fmt.Sprintf("s3://%s/%s", o.bucket, o.key) }
func (o *S3Object) Subpath(n int) []string { return subpathOf(o, n) }
func (o *S3Object) Name() string           { return o.name }

// Read streams the object's body. bufsize documents the caller's
// preferred chunk size; the SDK's own buffering is used underneath.
func (o *S3Object) Read(bufsize int) (io.ReadCloser, error) {
	out, err := o.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: &o.bucket,
		Key:    &o.key,
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("repo: %w: %s", ErrNotFound, o.key)
		}
		return nil, fmt.Errorf("repo: %w: %v", ErrTransport, err)
	}
	return out.Body, nil
}

// Write always fails: the S3 remote tree is read-only, mirroring the
// HTTP tree's contract.
func (o *S3Object) Write(r io.Reader, overwrite bool) error {
	return fmt.Errorf("repo: %w: write on a remote tree", ErrUnsupported)
}

func strPtr(s string) *string { return &s }
func int32Ptr(n int32) *int32 { return &n }
