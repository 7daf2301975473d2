// Package storage provides the put-object collaborator used by publishing:
// an S3/MinIO backend built on aws-sdk-go-v2 and a filesystem mirror for
// local serving and tests.
package storage
