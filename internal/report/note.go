// SPDX-License-Identifier: MIT
package report

import (
	"fmt"
	"math"
)

// ConcertA is the reference pitch of A4 in Hz.
const ConcertA = 440.0

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is the equal-tempered note nearest to a frequency.
type Note struct {
	Name   string  `json:"name"`
	Octave int     `json:"octave"`
	Cents  float64 `json:"cents"` // Deviation from the note, -50 to +50.
	MIDI   int     `json:"midi"`
}

func (n Note) String() string {
	return fmt.Sprintf("%s%d %+.0fc", n.Name, n.Octave, n.Cents)
}

// NoteFor returns the note nearest to hz. It reports false for
// non-positive or non-finite frequencies.
func NoteFor(hz float64) (Note, bool) {
	if hz <= 0 || math.IsInf(hz, 0) || math.IsNaN(hz) {
		return Note{}, false
	}
	midi := 69 + 12*math.Log2(hz/ConcertA)
	nearest := math.Round(midi)
	n := int(nearest)
	return Note{
		Name:   noteNames[((n%12)+12)%12],
		Octave: int(math.Floor(nearest/12)) - 1,
		Cents:  (midi - nearest) * 100,
		MIDI:   n,
	}, true
}
