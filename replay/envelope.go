package replay

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var marshalOpts = proto.MarshalOptions{Deterministic: true}

type tapeBuilder struct {
	handID string
	seq    uint64
	events []ReplayEvent
	err    error
}

func newTapeBuilder(handID string) *tapeBuilder {
	return &tapeBuilder{
		handID: handID,
		events: make([]ReplayEvent, 0, 16),
	}
}

func (b *tapeBuilder) add(eventType string, value map[string]any) {
	if b.err != nil {
		return
	}
	b.seq++
	env, err := structpb.NewStruct(map[string]any{
		"type":    eventType,
		"seq":     b.seq,
		"hand_id": b.handID,
		"payload": value,
	})
	if err != nil {
		b.err = fmt.Errorf("event %d (%s): %w", b.seq, eventType, err)
		return
	}
	bin, err := marshalOpts.Marshal(env)
	if err != nil {
		b.err = fmt.Errorf("event %d (%s): %w", b.seq, eventType, err)
		return
	}
	b.events = append(b.events, ReplayEvent{
		Type:        eventType,
		Seq:         b.seq,
		Value:       value,
		EnvelopeB64: base64.StdEncoding.EncodeToString(bin),
	})
}

// DecodeEnvelope turns an event's EnvelopeB64 back into its
// {type, seq, hand_id, payload} form.
func DecodeEnvelope(b64 string) (map[string]any, error) {
	bin, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var env structpb.Struct
	if err := proto.Unmarshal(bin, &env); err != nil {
		return nil, err
	}
	return env.AsMap(), nil
}
