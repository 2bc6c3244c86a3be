// Package protocol owns the robot control wire vocabulary.
//
// Ownership boundary:
// - message terminator and fixed server/client messages
// - per-exchange length limits
// - position reply parsing
// - session error taxonomy
package protocol
