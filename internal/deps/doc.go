// Package deps resolves the external binaries the transcoder invokes.
package deps
