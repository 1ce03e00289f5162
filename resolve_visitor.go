package di

// resolveVisitor tracks the services on the current resolution path to detect cycles.
type resolveVisitor map[service]struct{}

// Enter returns false if the service is already on the path.
func (v resolveVisitor) Enter(s service) bool {
	if _, exists := v[s]; exists {
		return false
	}

	v[s] = struct{}{}
	return true
}

func (v resolveVisitor) Leave(s service) {
	delete(v, s)
}
