package shared

import "context"

type sessionContextKey struct{}

type activityContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithActivity stores the application activity tracker in context.
func ContextWithActivity(ctx context.Context, a *Activity) context.Context {
	return context.WithValue(ctx, activityContextKey{}, a)
}

// ActivityFromContext returns the tracker stored in ctx. The result may be
// nil; a nil *Activity is safe to use.
func ActivityFromContext(ctx context.Context) *Activity {
	a, _ := ctx.Value(activityContextKey{}).(*Activity)
	return a
}
