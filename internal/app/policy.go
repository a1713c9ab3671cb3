package app

import "github.com/convoyhq/hub/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

type Policy interface {
	OnBackPressure(room *core.Room, member *core.Session) BackpressureAction
}

// SimplePolicy kicks any consumer whose send queue overflows; a client
// that cannot drain presence traffic will not keep up with a call either.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room *core.Room, member *core.Session) BackpressureAction {
	return KickMember
}
