package signaling

import "github.com/pion/webrtc/v4"

// Client to server events.
const (
	EventCallInitiate = "call-initiate"
	EventCallAnswer   = "call-answer"
	EventCallReject   = "call-reject"
	EventCallEnd      = "call-end"
	EventICECandidate = "ice-candidate"
)

// Server to client events.
const (
	EventIncomingCall = "incoming-call"
	EventCallAnswered = "call-answered"
	EventCallRejected = "call-rejected"
	EventCallEnded    = "call-ended"
)

type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

type CallInitiate struct {
	To         string                    `json:"to"`
	Offer      webrtc.SessionDescription `json:"offer"`
	CallType   CallType                  `json:"callType"`
	CallerName string                    `json:"callerName"`
	BookingRef string                    `json:"bookingRef,omitempty"`
}

type IncomingCall struct {
	From       string                    `json:"from"`
	Offer      webrtc.SessionDescription `json:"offer"`
	CallType   CallType                  `json:"callType"`
	CallerName string                    `json:"callerName"`
	BookingRef string                    `json:"bookingRef,omitempty"`
}

type CallAnswer struct {
	To     string                    `json:"to"`
	Answer webrtc.SessionDescription `json:"answer"`
}

type CallAnswered struct {
	From   string                    `json:"from"`
	Answer webrtc.SessionDescription `json:"answer"`
}

// Addressed covers call-reject and call-end.
type Addressed struct {
	To string `json:"to"`
}

type From struct {
	From string `json:"from"`
}

type ICECandidate struct {
	To        string                  `json:"to"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type RelayedICECandidate struct {
	From      string                  `json:"from"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}
