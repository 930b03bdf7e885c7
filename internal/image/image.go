// Package image resolves the firmware image to upload: a local file or an
// object in S3-compatible storage, with its size and MD5 digest.
package image

import (
	"context"
	"crypto/md5" //nolint:gosec // The device only reports MD5 digests
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const s3Scheme = "s3://"

// Image is a firmware image available on the local file system.
type Image struct {
	// Name is the base file name, the default destination name on the device.
	Name string
	Path string
	Size int64
	// MD5 is the lowercase hex digest of the file content.
	MD5 string

	cleanup func() error
}

// Fetcher downloads objects from object storage.
type Fetcher interface {
	Download(ctx context.Context, bucket, key string, w io.Writer) (int64, error)
}

// IsRemote reports whether source refers to object storage.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, s3Scheme)
}

// Resolve returns the image for source. Remote sources are downloaded into
// cacheDir (the system temp dir when empty) using fetcher; the downloaded
// copy is removed by Close.
func Resolve(ctx context.Context, source string, fetcher Fetcher, cacheDir string) (*Image, error) {
	if !IsRemote(source) {
		return Open(source)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("no object storage configured for %s", source)
	}

	bucket, key, err := ParseS3URL(source)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(cacheDir, "fwupgrade-*-"+filepath.Base(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache file: %w", err)
	}
	remove := func() error { return os.Remove(f.Name()) }

	if _, err := fetcher.Download(ctx, bucket, key, f); err != nil {
		_ = f.Close()
		_ = remove()
		return nil, fmt.Errorf("failed to download %s: %w", source, err)
	}
	if err := f.Close(); err != nil {
		_ = remove()
		return nil, fmt.Errorf("failed to write image cache file: %w", err)
	}

	img, err := Open(f.Name())
	if err != nil {
		_ = remove()
		return nil, err
	}
	img.Name = filepath.Base(key)
	img.cleanup = remove
	return img, nil
}

// Open stats and digests a local image file.
func Open(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("image %s is a directory", path)
	}

	digest, err := digestFile(path)
	if err != nil {
		return nil, err
	}

	return &Image{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
		MD5:  digest,
	}, nil
}

// Reader opens the image content for reading.
func (i *Image) Reader() (io.ReadCloser, error) {
	// #nosec G304
	f, err := os.Open(i.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return f, nil
}

// Close removes cached downloads. Local images are left untouched.
func (i *Image) Close() error {
	if i.cleanup == nil {
		return nil
	}
	err := i.cleanup()
	i.cleanup = nil
	return err
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(source string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(source, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid object URL %q, want s3://bucket/key", source)
	}
	return bucket, key, nil
}

func digestFile(path string) (string, error) {
	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // The device only reports MD5 digests
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to digest image: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
