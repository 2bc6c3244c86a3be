// Package session owns per-connection transport settings for robot sessions.
//
// Ownership boundary:
// - receive/send timeouts and the recharging wait
// - framing limits applied by the frame channel
// - listener transport security policy
package session
