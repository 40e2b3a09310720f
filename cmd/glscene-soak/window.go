package main

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// window is a hidden GLFW window whose GLES 2 context is current on the
// calling thread.
type window struct {
	w *glfw.Window
}

func openWindow(width, height int, visible bool) (*window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 0)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	if !visible {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	w, err := glfw.CreateWindow(width, height, "glscene soak", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	w.MakeContextCurrent()
	glfw.SwapInterval(0)
	return &window{w: w}, nil
}

// frame presents the back buffer and reports whether the window is still open.
func (w *window) frame() bool {
	w.w.SwapBuffers()
	glfw.PollEvents()
	return !w.w.ShouldClose()
}

func (w *window) close() {
	w.w.Destroy()
	glfw.Terminate()
}
