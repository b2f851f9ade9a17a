package storage

import "context"

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Bucket string
	Key    string
	Size   int64
}

// ObjectStorage captures the S3-compatible operations needed to stage a payload locally.
type ObjectStorage interface {
	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
	DownloadObject(ctx context.Context, bucket, key, destPath string) error
}
