// Package version exposes the build identity of apikit and the default
// User-Agent derived from it.
//
// Version and commit are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/apikit/version.Version=1.0.0"
package version
