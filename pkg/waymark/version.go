// Package waymark holds build metadata for the waymark module.
package waymark

// Version is the release version. Builds override it with
// -ldflags "-X github.com/mesh-intelligence/waymark/pkg/waymark.Version=...".
var Version = "0.1.0"
