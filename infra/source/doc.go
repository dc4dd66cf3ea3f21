// Package source provides the built-in module sources:
//
//   - http: GET <base_url>/<id><ext>
//   - file: <dir>/<id><ext> on the local filesystem
//   - object: <prefix><id><ext> in an S3-compatible bucket (MinIO client)
//   - static: inline payloads from configuration
//
// Importing the package registers them with core/source.
package source
