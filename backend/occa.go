//go:build cgo

package backend

import (
	"github.com/notargets/gocca"
	"github.com/pkg/errors"
)

// occaBackend drives an OCCA device (OpenMP, CUDA, OpenCL, ...). OCCA
// kernel launches are asynchronous, so Synchronize must drain the device
// queue before communication buffers are read.
type occaBackend struct {
	device *gocca.OCCADevice
}

func (b *occaBackend) Name() string { return "occa:" + b.device.Mode() }

func (b *occaBackend) Synchronize() { b.device.Finish() }

func init() {
	Register("occa", func(config string) (Backend, error) {
		if config == "" {
			config = `{"mode": "Serial"}`
		}
		device, err := gocca.NewDevice(config)
		if err != nil {
			return nil, errors.Wrapf(err, "creating OCCA device from %q", config)
		}
		return &occaBackend{device: device}, nil
	})
}
