// Package robot drives one connected robot through its session.
//
// Ownership boundary:
// - login handshake (Authenticate)
// - pose discovery (EstimatePose)
// - navigation and probing over the zone plan (Session)
//
// Everything here talks to the robot only through Channel; framing,
// timeouts and recharging notices are handled below it.
package robot
