package walletsession

import "context"

type managerContextKey struct{}

// WithManager returns a copy of ctx carrying m. Consumers below this point
// resolve the session through FromContext.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerContextKey{}, m)
}

// FromContext returns the Manager provisioned by WithManager.
// It panics with ErrInvalidContextUse when ctx carries none: reading the
// session outside its provisioning scope is a programming error.
func FromContext(ctx context.Context) *Manager {
	if ctx != nil {
		if m, ok := ctx.Value(managerContextKey{}).(*Manager); ok && m != nil {
			return m
		}
	}
	panic(NewSessionError(ErrCodeInvalidContextUse, "FromContext must be used within a WithManager scope", nil))
}

// ManagerFromContext is the non-panicking form of FromContext
func ManagerFromContext(ctx context.Context) (*Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	m, ok := ctx.Value(managerContextKey{}).(*Manager)
	return m, ok && m != nil
}
