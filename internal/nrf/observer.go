package nrf

// Observer receives notifications about the core's side effects. The host
// wires a metrics implementation; tests usually pass NopObserver.
type Observer interface {
	ConfigWritten()
	ServiceRestarted()
	CertificateStored()
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) ConfigWritten()     {}
func (NopObserver) ServiceRestarted()  {}
func (NopObserver) CertificateStored() {}
