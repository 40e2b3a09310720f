// Package backend defines the fixed rendering device used by glscene.
//
// A Device owns texture objects, framebuffer objects and a small set of
// fixed shader programs. glscene drives it from a single goroutine (the
// "GL thread"); devices are not safe for concurrent use.
//
// # Device Registration
//
// Devices are registered via init() functions and selected at runtime:
//
//	import _ "github.com/gogpu/glscene/backend/recording"
//
//	d, err := backend.Open("recording")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer d.Close()
//
// # Available Devices
//
// - "gles": OpenGL ES 2 via go-gl (requires a current GL context)
// - "recording": headless in-memory device that records every call
package backend
