// Package user implements account registration and login. It acts as the
// identity provider for the realtime core, which only ever sees the opaque
// user IDs minted here.
package user
