// SPDX-License-Identifier: MIT
package listener

import "fmt"

// State is the lifecycle state of a Listener.
type State int32

const (
	Idle State = iota
	Listening
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
