// Package s3 fetches firmware images from S3-compatible object storage.
//
// Images referenced as s3://bucket/key are downloaded to a local cache before
// the transfer to the device, so checksums and sizes can be computed up front.
package s3
