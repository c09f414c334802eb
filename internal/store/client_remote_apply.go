package store

import "context"

type remoteApplyKey struct{}

// WithRemoteApply marks ctx as applying changes received from the server.
// Writes made with such a context are not queued for push again.
func WithRemoteApply(ctx context.Context) context.Context {
	return context.WithValue(ctx, remoteApplyKey{}, true)
}

// IsRemoteApply reports whether ctx was marked by [WithRemoteApply].
func IsRemoteApply(ctx context.Context) bool {
	v, _ := ctx.Value(remoteApplyKey{}).(bool)
	return v
}
