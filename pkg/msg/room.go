package msg

import "fmt"

// RoomId derives the session identifier from the participant pair. The
// pair is sorted first so either side can recompute the same id without
// a round trip, regardless of which identifier it learned first.
func RoomId(participantA, participantB string) string {
	a, b := participantA, participantB
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("chat-%v-%v", a, b)
}
