// Package daemon detaches the server from its terminal after the listening
// socket has been bound.
//
// Go cannot fork safely, so Detach re-executes the binary in a new session
// and passes the bound socket as an inherited descriptor. The child calls
// InheritedListener to pick it up and Sanitize to drop the working
// directory and umask. Bind errors are therefore still reported by the
// parent, before it exits.
package daemon
