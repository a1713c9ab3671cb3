package domain

// SignalKind classifies call-setup payloads relayed between peers.
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
	SignalEndCall      SignalKind = "end-call"
)

// EventType is the outbound envelope type for a relayed kind.
func (k SignalKind) EventType() string {
	switch k {
	case SignalOffer:
		return "webrtc_offer"
	case SignalAnswer:
		return "webrtc_answer"
	case SignalICECandidate:
		return "webrtc_ice_candidate"
	case SignalEndCall:
		return "webrtc_end_call"
	}
	return ""
}
