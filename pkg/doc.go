// Package pkg provides the core libraries for gradlab gradient-domain editing.
//
// # Overview
//
// gradlab edits images through their derivatives. A lab service computes the
// horizontal (dx) and vertical (dy) gradient maps of an uploaded image; the
// user paints deltas onto those maps and the service reconstructs the edited
// image by integrating the modified gradients.
//
// # Architecture
//
// The data flow of an edit:
//
//	Image file
//	     ↓
//	[integrations/lab] upload, fetch gradient rasters
//	     ↓
//	[session] pointer events → [viewport] → [brush] → [layer]
//	     ↓
//	[composite] channel ⊕ edit layer → display frame
//	     ↓
//	[integrations/lab] reconstruct with the encoded layers
//
// # Main Packages
//
// [viewport] maps pointer positions on a letterboxed display onto buffer
// pixels.
//
// [layer] holds per-channel edit buffers (128 = no change) and their PNG
// codec.
//
// [brush] applies the paint, sharpen, smooth and erase tools to a layer.
//
// [composite] blends a channel with its layer into the displayed frame and
// coalesces redraws.
//
// [session] owns the image, layers, brush and reconstruction lifecycle.
//
// [integrations/lab] is the HTTP client for the lab service, with
// [integrations/lab/labtest] as an in-process fake.
//
// [analyzer] scores single images and compares two.
//
// [script] replays TOML stroke scripts onto a session.
//
// [server] exposes sessions over a local HTTP API.
//
// [cache] stores service responses on disk, in Redis or in MongoDB.
//
// [config] loads the TOML configuration.
//
// # Testing
//
//	go test ./pkg/...
//	go test -run Example ./pkg/...
//
// [viewport]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/viewport
// [layer]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/layer
// [brush]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/brush
// [composite]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/composite
// [session]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/session
// [integrations/lab]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/integrations/lab
// [integrations/lab/labtest]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/integrations/lab/labtest
// [analyzer]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/analyzer
// [script]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/script
// [server]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/server
// [cache]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/gradlab/pkg/config
package pkg
