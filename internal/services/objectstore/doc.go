// Package objectstore publishes final match artifacts to object storage.
//
// The MinIO sink speaks the S3 API through minio-go; DirSink copies into a
// local directory for setups without an object store. Upload removes the
// local artifact only after the sink acknowledged it, so a failed upload
// always leaves the merged file in place for a retry.
package objectstore
