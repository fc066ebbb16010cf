// Package version reports the build version of flowkit binaries.
//
// Version, commit, branch and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/flowkit/version.Version=1.2.0" ./cmd/flowdemo
//
// Missing values fall back to the VCS stamps of runtime/debug.BuildInfo.
package version
