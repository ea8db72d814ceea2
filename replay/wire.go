package replay

// WireReplayTape is the camelCase shape handed to browser clients.
type WireReplayTape struct {
	TapeVersion int               `json:"tapeVersion"`
	HandID      string            `json:"handId"`
	Decider     string            `json:"decider"`
	Events      []WireReplayEvent `json:"events"`
}

type WireReplayEvent struct {
	Type        string         `json:"type"`
	Seq         uint64         `json:"seq"`
	Value       map[string]any `json:"value,omitempty"`
	EnvelopeB64 string         `json:"envelopeB64"`
}

func ToWireReplayTape(tape *ReplayTape) *WireReplayTape {
	if tape == nil {
		return nil
	}
	out := &WireReplayTape{
		TapeVersion: tape.TapeVersion,
		HandID:      tape.HandID,
		Decider:     tape.Decider,
		Events:      make([]WireReplayEvent, 0, len(tape.Events)),
	}
	for _, e := range tape.Events {
		out.Events = append(out.Events, WireReplayEvent{
			Type:        e.Type,
			Seq:         e.Seq,
			Value:       e.Value,
			EnvelopeB64: e.EnvelopeB64,
		})
	}
	return out
}
