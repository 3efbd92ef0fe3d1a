// Package auth holds the identity store, the bearer-token boundary and the
// error taxonomy shared by the authorisation subsystem.
package auth
