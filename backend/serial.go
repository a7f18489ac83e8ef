package backend

// serialBackend keeps all data in host memory; there is no asynchronous
// device execution to wait for.
type serialBackend struct{}

func (serialBackend) Name() string { return "serial" }

func (serialBackend) Synchronize() {}

func init() {
	Register("serial", func(string) (Backend, error) {
		return serialBackend{}, nil
	})
}
