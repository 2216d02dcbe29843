package deps

// Pactl is the requirement for the pactl backend. It is optional unless that
// backend is selected.
func Pactl(binary string, optional bool) Requirement {
	return Requirement{
		Name:        "pactl",
		Command:     binary,
		Description: "PulseAudio/PipeWire command-line control",
		Optional:    optional,
		VersionArgs: []string{"--version"},
	}
}
