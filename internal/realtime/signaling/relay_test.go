package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homecare/internal/domain/booking"
	"homecare/internal/pkg/apperr"
	"homecare/internal/realtime/presence"
)

const testSDP = "v=0\r\no=- 4215775240449105457 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func next(t *testing.T, c *presence.Client) frame {
	t.Helper()
	select {
	case raw := <-c.Send():
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	default:
		t.Fatal("no frame queued")
		return frame{}
	}
}

func setup(t *testing.T) (*Relay, *presence.Registry) {
	registry := presence.NewRegistry(zap.NewNop())
	return NewRelay(registry, zap.NewNop()), registry
}

func TestRelay_InitiateStampsSender(t *testing.T) {
	relay, registry := setup(t)
	callee := presence.NewClient(4)
	registry.Join("staff-1", callee)

	raw := json.RawMessage(`{"to":"staff-1","from":"somebody-else","callType":"video","callerName":"Jane",
		"bookingRef":"b1","offer":{"type":"offer","sdp":"` + jsonEscape(testSDP) + `"}}`)
	require.NoError(t, relay.Relay("patient-1", EventCallInitiate, raw))

	f := next(t, callee)
	assert.Equal(t, EventIncomingCall, f.Type)
	var in IncomingCall
	require.NoError(t, json.Unmarshal(f.Payload, &in))
	assert.Equal(t, "patient-1", in.From)
	assert.Equal(t, CallVideo, in.CallType)
	assert.Equal(t, "b1", in.BookingRef)
	assert.Equal(t, testSDP, in.Offer.SDP)
}

func TestRelay_AnswerRejectEndICE(t *testing.T) {
	relay, registry := setup(t)
	caller := presence.NewClient(8)
	registry.Join("patient-1", caller)

	answer := `{"to":"patient-1","answer":{"type":"answer","sdp":"` + jsonEscape(testSDP) + `"}}`
	require.NoError(t, relay.Relay("staff-1", EventCallAnswer, json.RawMessage(answer)))
	f := next(t, caller)
	assert.Equal(t, EventCallAnswered, f.Type)
	assert.Contains(t, string(f.Payload), `"from":"staff-1"`)

	require.NoError(t, relay.Relay("staff-1", EventCallReject, json.RawMessage(`{"to":"patient-1"}`)))
	assert.Equal(t, EventCallRejected, next(t, caller).Type)

	require.NoError(t, relay.Relay("staff-1", EventCallEnd, json.RawMessage(`{"to":"patient-1"}`)))
	assert.Equal(t, EventCallEnded, next(t, caller).Type)

	ice := `{"to":"patient-1","candidate":{"candidate":"candidate:1 1 udp 2130706431 10.0.0.2 54400 typ host","sdpMid":"0","sdpMLineIndex":0}}`
	require.NoError(t, relay.Relay("staff-1", EventICECandidate, json.RawMessage(ice)))
	f = next(t, caller)
	assert.Equal(t, EventICECandidate, f.Type)
	var got RelayedICECandidate
	require.NoError(t, json.Unmarshal(f.Payload, &got))
	assert.Equal(t, "staff-1", got.From)
	require.NotNil(t, got.Candidate.SDPMid)
	assert.Equal(t, "0", *got.Candidate.SDPMid)
}

func TestRelay_Validation(t *testing.T) {
	relay, registry := setup(t)
	callee := presence.NewClient(4)
	registry.Join("staff-1", callee)

	cases := map[string]struct {
		event string
		raw   string
		want  error
	}{
		"unknown event":  {"call-hold", `{"to":"staff-1"}`, ErrUnknownEvent},
		"empty payload":  {EventCallEnd, ``, ErrMalformed},
		"bad json":       {EventCallEnd, `{"to":`, ErrMalformed},
		"missing target": {EventCallEnd, `{}`, ErrMissingTarget},
		"self":           {EventCallEnd, `{"to":"patient-1"}`, ErrSelfCall},
		"bad call type": {EventCallInitiate,
			`{"to":"staff-1","callType":"fax","offer":{"type":"offer","sdp":"` + jsonEscape(testSDP) + `"}}`, ErrInvalidCallType},
		"answer as offer": {EventCallInitiate,
			`{"to":"staff-1","callType":"audio","offer":{"type":"answer","sdp":"` + jsonEscape(testSDP) + `"}}`, apperr.ErrValidation},
		"garbage sdp": {EventCallInitiate,
			`{"to":"staff-1","callType":"audio","offer":{"type":"offer","sdp":"hello"}}`, ErrInvalidOffer},
	}
	for name, tc := range cases {
		err := relay.Relay("patient-1", tc.event, json.RawMessage(tc.raw))
		assert.ErrorIs(t, err, tc.want, name)
	}
	assert.Len(t, callee.Send(), 0, "malformed events must not be relayed")
}

func TestRelay_OfflineTargetIsDropped(t *testing.T) {
	relay, _ := setup(t)
	assert.NoError(t, relay.Relay("staff-1", EventCallEnd, json.RawMessage(`{"to":"patient-1"}`)))
}

func TestCapability(t *testing.T) {
	relay, registry := setup(t)
	requester, staff := "patient-1", "staff-1"
	b := &booking.Booking{
		ID: "b1", RequesterID: &requester, AssignedStaffID: &staff, Phone: "+1 (555) 010-0199",
		AssignedStaff: &booking.StaffRef{ID: staff, Name: "Sam", Phone: "555 0100"},
	}

	c := relay.Capability(b, "staff-1")
	assert.Equal(t, Capability{Mode: ModeTelLink, CalleeID: "patient-1", TelURI: "tel:+15550100199"}, c)

	registry.Join("patient-1", presence.NewClient(1))
	c = relay.Capability(b, "staff-1")
	assert.Equal(t, ModeInAppRelay, c.Mode)

	c = relay.Capability(b, "patient-1")
	assert.Equal(t, Capability{Mode: ModeTelLink, CalleeID: "staff-1", TelURI: "tel:5550100"}, c)

	b.AssignedStaff = nil
	c = relay.Capability(b, "patient-1")
	assert.Equal(t, ModeNone, c.Mode)
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
