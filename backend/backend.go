// Package backend abstracts the numeric device a rank's array data lives
// on. The communication layer calls Synchronize before posting sends so
// that asynchronously executing device kernels cannot race against
// in-flight network transfers; on a host-memory backend this is a no-op.
//
// Backends are registered by name and selected once at process start with a
// configuration string of the form "name" or "name:config".
package backend

import (
	"strings"

	"github.com/pkg/errors"
)

type Backend interface {
	Name() string

	// Synchronize blocks until all outstanding device work has completed
	// and buffers are materialized in host-visible memory.
	Synchronize()
}

// Constructor builds a Backend from a backend-specific configuration
// string, which may be empty.
type Constructor func(config string) (Backend, error)

var registered = make(map[string]Constructor)

// Register makes a backend available under the given name. Call from an
// init function.
func Register(name string, ctor Constructor) {
	registered[name] = ctor
}

// New selects a backend from a "name" or "name:config" specification. An
// empty spec selects the serial host-memory backend.
func New(spec string) (Backend, error) {
	if spec == "" {
		spec = "serial"
	}
	name, config := spec, ""
	if i := strings.Index(spec, ":"); i >= 0 {
		name, config = spec[:i], spec[i+1:]
	}
	ctor, ok := registered[name]
	if !ok {
		return nil, errors.Errorf("unsupported backend %q", name)
	}
	return ctor(config)
}

// Default returns the serial host-memory backend.
func Default() Backend {
	b, err := New("serial")
	if err != nil {
		panic(err)
	}
	return b
}
