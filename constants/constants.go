package constants

import (
	"os"

	"github.com/pkg/errors"
)

func GetOutputDir() string {
	path := os.Getenv("OUTPUT_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

func GetCheckpointPath() string {
	path := os.Getenv("CHECKPOINT_PATH")
	if path != "" {
		return path
	}
	return GetOutputDir() + "/weights.dat"
}

// GetDynamoEndpoint returns "" when style lookups are disabled.
func GetDynamoEndpoint() string {
	return os.Getenv("DYNAMO_ENDPOINT")
}

func GetPort() string {
	port := os.Getenv("PORT")
	if port != "" {
		return port
	}
	return "8080"
}

const (
	Octave     = 12
	NumOctaves = 4
	NumNotes   = Octave * NumOctaves

	// lowest pitch of the note range as a MIDI number
	MinNote = 36

	NotesPerBeat = 4
	BeatsPerBar  = 4
	NotesPerBar  = NotesPerBeat * BeatsPerBar

	// window size used for training and generation
	SeqLen = 8 * NotesPerBar

	NumStyles = 4

	StyleUnits     = 64
	BeatUnits      = 32
	OctaveUnits    = 64
	TimeAxisUnits  = 256
	TimeAxisLayers = 2
	NoteAxisUnits  = 128
	NoteAxisLayers = 2
)

var StyleNames = []string{"baroque", "classical", "romantic", "modern"}

// Dims carries every size the network graph depends on. The package level
// constants are the defaults; tests build smaller models.
type Dims struct {
	NumNotes       int
	Octave         int
	NumOctaves     int
	NumStyles      int
	NotesPerBar    int
	StyleUnits     int
	BeatUnits      int
	OctaveUnits    int
	TimeAxisUnits  int
	TimeAxisLayers int
	NoteAxisUnits  int
	NoteAxisLayers int
}

func DefaultDims() Dims {
	return Dims{
		NumNotes:       NumNotes,
		Octave:         Octave,
		NumOctaves:     NumOctaves,
		NumStyles:      NumStyles,
		NotesPerBar:    NotesPerBar,
		StyleUnits:     StyleUnits,
		BeatUnits:      BeatUnits,
		OctaveUnits:    OctaveUnits,
		TimeAxisUnits:  TimeAxisUnits,
		TimeAxisLayers: TimeAxisLayers,
		NoteAxisUnits:  NoteAxisUnits,
		NoteAxisLayers: NoteAxisLayers,
	}
}

func (d Dims) Validate() error {
	sizes := []struct {
		name string
		val  int
	}{
		{"NumNotes", d.NumNotes},
		{"Octave", d.Octave},
		{"NumOctaves", d.NumOctaves},
		{"NumStyles", d.NumStyles},
		{"NotesPerBar", d.NotesPerBar},
		{"StyleUnits", d.StyleUnits},
		{"BeatUnits", d.BeatUnits},
		{"OctaveUnits", d.OctaveUnits},
		{"TimeAxisUnits", d.TimeAxisUnits},
		{"TimeAxisLayers", d.TimeAxisLayers},
		{"NoteAxisUnits", d.NoteAxisUnits},
		{"NoteAxisLayers", d.NoteAxisLayers},
	}
	for _, s := range sizes {
		if s.val <= 0 {
			return errors.Errorf("%s must be positive, got %d", s.name, s.val)
		}
	}

	// pitch class and pitch bin features silently misalign otherwise
	if d.NumNotes%d.Octave != 0 {
		return errors.Errorf("NumNotes (%d) is not a multiple of Octave (%d)", d.NumNotes, d.Octave)
	}
	if d.NumOctaves*d.Octave != d.NumNotes {
		return errors.Errorf("NumOctaves*Octave (%d) does not equal NumNotes (%d)", d.NumOctaves*d.Octave, d.NumNotes)
	}
	return nil
}
