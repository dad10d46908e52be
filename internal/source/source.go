// Package source loads the bytes of an archive named on the command line, either a local file or an S3 object.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nguyengg/xarchive/internal"
	"github.com/nguyengg/xarchive/internal/config"
	"github.com/schollz/progressbar/v3"
)

// Source is an archive loaded entirely into memory.
type Source struct {
	// Name is the local path or the S3 URI the source was loaded from.
	Name string
	// Data is the content of the archive.
	Data []byte
}

// Options customises Load.
type Options struct {
	// Loader provides the S3 clients and bucket settings. Defaults to config.DefaultLoader.
	Loader *config.Loader
	// Concurrency is the number of parts downloaded in parallel from S3. Defaults to manager.DefaultDownloadConcurrency.
	Concurrency int
	// ShowProgress adds a progress bar while downloading from S3.
	ShowProgress bool
	// Logger if given and ShowProgress is false receives periodic part counts while downloading from S3.
	Logger *log.Logger
}

// ParseS3URI returns the bucket and key of an "s3://bucket/key" URI.
//
// The boolean is false if uri does not use the s3 scheme; an error is returned if it does but is malformed.
func ParseS3URI(uri string) (bucket, key string, ok bool, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", false, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", true, fmt.Errorf("invalid S3 URI %q: %w", uri, err)
	}

	bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", true, fmt.Errorf("invalid S3 URI %q: must be s3://bucket/key", uri)
	}

	return bucket, key, true, nil
}

// Load reads the archive named by arg.
func Load(ctx context.Context, arg string, optFns ...func(*Options)) (*Source, error) {
	opts := &Options{
		Loader:      config.DefaultLoader,
		Concurrency: manager.DefaultDownloadConcurrency,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	bucket, key, ok, err := ParseS3URI(arg)
	switch {
	case err != nil:
		return nil, err
	case !ok:
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, err
		}

		return &Source{Name: arg, Data: data}, nil
	}

	data, err := download(ctx, bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("download %q error: %w", arg, err)
	}

	return &Source{Name: arg, Data: data}, nil
}

func download(ctx context.Context, bucket, key string, opts *Options) ([]byte, error) {
	client, err := opts.Loader.NewS3ClientForBucket(ctx, bucket, func(o *s3.Options) {
		// without this, getting a bunch of WARN message below:
		// WARN Response has no supported checksum. Not validating response payload.
		o.DisableLogOutputChecksumValidationSkipped = true
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client error: %w", err)
	}

	owner := opts.Loader.ForBucket(bucket).ExpectedBucketOwner

	headObjectOutput, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:              aws.String(bucket),
		Key:                 aws.String(key),
		ExpectedBucketOwner: owner,
	})
	if err != nil {
		return nil, fmt.Errorf("head object error: %w", err)
	}

	size := aws.ToInt64(headObjectOutput.ContentLength)
	buf := manager.NewWriteAtBuffer(make([]byte, 0, size))

	var w io.WriterAt = buf
	if opts.ShowProgress {
		bar := internal.DefaultBytes(size, "downloading")
		defer bar.Close()
		w = &progressWriterAt{w: buf, bar: bar}
	}

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.Concurrency = max(opts.Concurrency, 1)
		if !opts.ShowProgress && opts.Logger != nil {
			d.S3 = newPartLoggingClient(d.S3, opts.Logger, size, d.PartSize)
		}
	})

	n, err := downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket:              aws.String(bucket),
		Key:                 aws.String(key),
		ExpectedBucketOwner: owner,
		IfMatch:             headObjectOutput.ETag,
	})
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, errors.New("object changed during download")
	}

	return buf.Bytes(), nil
}

// progressWriterAt reports every successful write to bar. Concurrent part downloads call WriteAt in parallel, which
// progressbar.ProgressBar tolerates.
type progressWriterAt struct {
	w   io.WriterAt
	bar *progressbar.ProgressBar
}

func (p *progressWriterAt) WriteAt(b []byte, off int64) (int, error) {
	n, err := p.w.WriteAt(b, off)
	_ = p.bar.Add(n)
	return n, err
}
