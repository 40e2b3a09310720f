// Package glscene is a retained-mode 2D scene renderer on top of a fixed
// OpenGL / OpenGL ES rendering device.
//
// # Overview
//
// glscene composites textured quads, nine-patches, offscreen framebuffers
// and vector rectangles. Its core is the texture lifecycle: a
// reference-counted set of GPU textures that share one bounded memory
// budget, decode their images on a background worker pool, and are evicted
// by render-tick age when an upload would not fit.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/glscene"
//		_ "github.com/gogpu/glscene/backend/recording"
//	)
//
//	ctx, err := glscene.NewContext(800, 600, glscene.WithDeviceName("recording"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	tex := ctx.NewRasterTextureFromData(pngBytes)
//	defer tex.Release()
//
//	for running {
//		ctx.NextFrame()
//		ctx.Clear()
//		ctx.DrawImage(0, 0, float32(tex.Width()), float32(tex.Height()), tex, nil, nil)
//	}
//
// # Threading
//
// A RenderContext and every texture method that touches the device must be
// used from one goroutine, the one that owns the GL context. Decoding runs
// on background workers; results are handed back through a queue that
// NextFrame drains without blocking. Texture construction and Release are
// safe from any goroutine.
//
// # Errors
//
// Binding a texture can fail with ErrNotInitialized (decode still pending,
// retry next frame), ErrOutOfMemory (budget exhausted after eviction),
// ErrUnsupported or ErrDimensionlessInput. Draw calls never return these;
// they draw a placeholder or nothing and log instead.
//
// # Coordinate System
//
// Origin (0,0) at top-left, X right, Y down, in pixels of the current
// render target.
package glscene

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
