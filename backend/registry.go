package backend

import (
	"github.com/gogpu/gpucontext"
)

// Device name constants.
const (
	// DeviceGLES is the OpenGL ES 2 device.
	DeviceGLES = "gles"

	// DeviceRecording is the headless in-memory device.
	DeviceRecording = "recording"
)

// devices holds registered device factories.
// A real graphics device is preferred over the headless one.
var devices = gpucontext.NewRegistry[Device](
	gpucontext.WithPriority(DeviceGLES, DeviceRecording),
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in device packages.
// If a device with the same name is already registered, it will be replaced.
func Register(name string, factory func() Device) {
	devices.Register(name, factory)
}

// Unregister removes a device from the registry.
// This is useful for testing.
func Unregister(name string) {
	devices.Unregister(name)
}

// Available returns a list of registered device names.
func Available() []string {
	return devices.Available()
}

// IsRegistered checks if a device with the given name is registered.
func IsRegistered(name string) bool {
	return devices.Has(name)
}

// Get returns a new device instance by name.
// Returns nil if the device is not registered.
func Get(name string) Device {
	if !devices.Has(name) {
		return nil
	}
	return devices.Get(name)
}

// Default returns the best available device based on priority.
// Returns nil if no devices are registered.
func Default() Device {
	return devices.Best()
}

// DefaultName returns the name Default would pick, or "" if none.
func DefaultName() string {
	return devices.BestName()
}

// Open returns an initialized device by name. An empty name selects Default.
func Open(name string) (Device, error) {
	var d Device
	if name == "" {
		d = Default()
	} else {
		d = Get(name)
	}
	if d == nil {
		return nil, ErrDeviceNotAvailable
	}

	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}
