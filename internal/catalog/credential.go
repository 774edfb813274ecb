package catalog

import "context"

type credentialKey struct{}

// WithCredential attaches the visitor's bearer token for order submission.
func WithCredential(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, credentialKey{}, token)
}

func CredentialFrom(ctx context.Context) string {
	if token, ok := ctx.Value(credentialKey{}).(string); ok {
		return token
	}
	return ""
}
