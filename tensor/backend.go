package tensor

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDeviceUnavailable is returned when no backend is registered for a device
var ErrDeviceUnavailable = errors.New("device unavailable")

// Backend moves Float32 data onto and off a compute device
type Backend interface {
	// Upload copies data to the device and returns the device buffer
	Upload(data []float32, shape []int) (interface{}, error)

	// Download copies n elements from a device buffer back to the host
	Download(buffer interface{}, n int) ([]float32, error)
}

var (
	backendsMu sync.RWMutex
	backends   = map[DeviceType]Backend{}
)

// RegisterBackend installs the backend used to place tensors on device.
// A nil backend removes the registration. The CPU needs no backend.
func RegisterBackend(device DeviceType, backend Backend) error {
	if device == CPU {
		return fmt.Errorf("the CPU device does not take a backend")
	}

	backendsMu.Lock()
	defer backendsMu.Unlock()
	if backend == nil {
		delete(backends, device)
		return nil
	}
	backends[device] = backend
	return nil
}

// Available reports whether tensors can be placed on device
func Available(device DeviceType) bool {
	if device == CPU {
		return true
	}
	_, err := backendFor(device)
	return err == nil
}

func backendFor(device DeviceType) (Backend, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	backend, ok := backends[device]
	if !ok {
		return nil, fmt.Errorf("%w: no backend registered for %s", ErrDeviceUnavailable, device)
	}
	return backend, nil
}
