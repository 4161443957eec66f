package visualizer

// Mode is what the panel draws. It is a pure function of the recording
// flag and the playback URL.
type Mode int

const (
	Idle Mode = iota
	Simulated
	Playback
)

func (m Mode) String() string {
	switch m {
	case Simulated:
		return "simulated"
	case Playback:
		return "playback"
	}
	return "idle"
}

func SelectMode(isRecording bool, url string) Mode {
	switch {
	case isRecording:
		return Simulated
	case url != "":
		return Playback
	}
	return Idle
}
