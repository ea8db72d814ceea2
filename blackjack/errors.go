package blackjack

import "errors"

var (
	ErrRoundFinished = errors.New("round already finished")
	ErrRoundNotDealt = errors.New("round not dealt")
	ErrPlayerBusted  = errors.New("player already busted")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
