package main

import (
	"encoding/json"
	"errors"

	"blackjack-ql/replay"
)

type initRequest struct {
	Spec replay.HandSpec `json:"spec"`
}

type initResponse struct {
	OK    bool                   `json:"ok"`
	Tape  *replay.WireReplayTape `json:"tape,omitempty"`
	Error *replay.ReplayError    `json:"error,omitempty"`
}

func requestError(reason, msg string) initResponse {
	return initResponse{
		OK:    false,
		Error: &replay.ReplayError{StepIndex: -1, Reason: reason, Message: msg},
	}
}

func handleInit(raw string) initResponse {
	var req initRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return requestError("invalid_json", err.Error())
	}

	tape, err := replay.GenerateReplayTape(req.Spec)
	if err != nil {
		var replayErr *replay.ReplayError
		if errors.As(err, &replayErr) {
			return initResponse{OK: false, Error: replayErr}
		}
		return requestError("replay_generation_failed", err.Error())
	}
	return initResponse{
		OK:   true,
		Tape: replay.ToWireReplayTape(tape),
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b2, _ := json.Marshal(requestError("marshal_failed", err.Error()))
		return string(b2)
	}
	return string(b)
}
