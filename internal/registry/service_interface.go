package registry

// Service is the interface for every component with a start/stop lifecycle.
type Service interface {
	Start() error
	Stop() error
}
