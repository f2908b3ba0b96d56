// Package config loads, normalizes, and validates fuzzyjoin configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file when present, and honours
// environment fallbacks such as MINIO_EXTERNAL_URL and MINIO_BUCKET_NAME. The
// Config type centralizes every knob a matching run needs: the two sources and
// their field candidates, thresholds, chunk and batch sizing, the output
// schema, and the object storage sink.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical names, and clear validation errors.
package config
