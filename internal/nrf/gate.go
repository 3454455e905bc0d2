package nrf

// ReadyToConfigure is the readiness gate: a pure predicate over a snapshot
// deciding whether convergence may proceed at all. Checks are conjunctive
// and short-circuit in a fixed order. A false result is not an error; the
// caller no-ops until the next external event.
func ReadyToConfigure(snap Snapshot, settings Settings) bool {
	if !snap.ContainerReachable {
		return false
	}
	if len(snap.MissingRelations(settings)) > 0 {
		return false
	}
	if !snap.DatabaseCreated {
		return false
	}
	if snap.DatabaseURI == "" {
		return false
	}
	if settings.WebuiRequired && snap.WebuiURL == "" {
		return false
	}
	if !snap.StorageAttached {
		return false
	}
	if snap.HostAddress == "" {
		return false
	}
	return true
}
