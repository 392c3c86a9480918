// Package signaling relays WebRTC call setup messages between two users'
// live connections. It keeps no call state and stores nothing.
package signaling

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// Presence is the part of the room registry the relay needs.
type Presence interface {
	Emit(identity, event string, payload any) int
	Online(identity string) bool
}

type Relay struct {
	presence Presence
	log      *zap.Logger
}

func NewRelay(presence Presence, log *zap.Logger) *Relay {
	return &Relay{presence: presence, log: log}
}

// Handles reports whether event is a signaling event.
func Handles(event string) bool {
	switch event {
	case EventCallInitiate, EventCallAnswer, EventCallReject, EventCallEnd, EventICECandidate:
		return true
	}
	return false
}

// Relay validates an inbound event from the authenticated identity from and
// forwards it to its target. The outbound from field is always the sender's
// identity. A target without live connections drops the event silently.
func (r *Relay) Relay(from, event string, raw json.RawMessage) error {
	to, out, payload, err := r.translate(from, event, raw)
	if err != nil {
		return err
	}
	if to == from {
		return ErrSelfCall
	}

	if r.presence.Emit(to, out, payload) == 0 {
		r.log.Debug("signaling target offline",
			zap.String("from", from),
			zap.String("to", to),
			zap.String("event", event))
	}
	return nil
}

func (r *Relay) translate(from, event string, raw json.RawMessage) (string, string, any, error) {
	switch event {
	case EventCallInitiate:
		var in CallInitiate
		if err := decode(raw, &in); err != nil {
			return "", "", nil, err
		}
		if in.CallType != CallAudio && in.CallType != CallVideo {
			return "", "", nil, ErrInvalidCallType
		}
		if err := checkSDP(in.Offer, webrtc.SDPTypeOffer); err != nil {
			return "", "", nil, fmt.Errorf("%w: %v", ErrInvalidOffer, err)
		}
		return in.To, EventIncomingCall, IncomingCall{
			From:       from,
			Offer:      in.Offer,
			CallType:   in.CallType,
			CallerName: strings.TrimSpace(in.CallerName),
			BookingRef: in.BookingRef,
		}, target(in.To)

	case EventCallAnswer:
		var in CallAnswer
		if err := decode(raw, &in); err != nil {
			return "", "", nil, err
		}
		if err := checkSDP(in.Answer, webrtc.SDPTypeAnswer); err != nil {
			return "", "", nil, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		return in.To, EventCallAnswered, CallAnswered{From: from, Answer: in.Answer}, target(in.To)

	case EventCallReject, EventCallEnd:
		var in Addressed
		if err := decode(raw, &in); err != nil {
			return "", "", nil, err
		}
		out := EventCallRejected
		if event == EventCallEnd {
			out = EventCallEnded
		}
		return in.To, out, From{From: from}, target(in.To)

	case EventICECandidate:
		var in ICECandidate
		if err := decode(raw, &in); err != nil {
			return "", "", nil, err
		}
		return in.To, EventICECandidate, RelayedICECandidate{From: from, Candidate: in.Candidate}, target(in.To)
	}
	return "", "", nil, ErrUnknownEvent
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrMalformed
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func target(to string) error {
	if strings.TrimSpace(to) == "" {
		return ErrMissingTarget
	}
	return nil
}

func checkSDP(desc webrtc.SessionDescription, want webrtc.SDPType) error {
	if desc.Type != want {
		return fmt.Errorf("got type %q", desc.Type.String())
	}
	if _, err := desc.Unmarshal(); err != nil {
		return err
	}
	return nil
}
