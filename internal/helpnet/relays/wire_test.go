package relays

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
)

func TestDecodeFrameEvent(t *testing.T) {
	data := []byte(`["EVENT","sub-1",{"id":"abc","pubkey":"def","created_at":1700000000,"kind":7000,"tags":[["e","job-1"]],"content":"hi","sig":"00"}]`)

	frame, err := decodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, "EVENT", frame.Label)
	assert.Equal(t, "sub-1", frame.SubID)
	require.NotNil(t, frame.Event)
	assert.Equal(t, "abc", frame.Event.ID)
	assert.Equal(t, 7000, frame.Event.Kind)
	assert.Equal(t, "hi", frame.Event.Content)
}

func TestDecodeFrameOK(t *testing.T) {
	frame, err := decodeFrame([]byte(`["OK","abc",true,""]`))
	require.NoError(t, err)
	assert.Equal(t, "OK", frame.Label)
	assert.Equal(t, "abc", frame.EventID)
	assert.True(t, frame.Accepted)

	frame, err = decodeFrame([]byte(`["OK","abc",false,"blocked: rate limited"]`))
	require.NoError(t, err)
	assert.False(t, frame.Accepted)
	assert.Equal(t, "blocked: rate limited", frame.Message)
}

func TestDecodeFrameNotice(t *testing.T) {
	frame, err := decodeFrame([]byte(`["NOTICE","restarting soon"]`))
	require.NoError(t, err)
	assert.Equal(t, "NOTICE", frame.Label)
	assert.Equal(t, "restarting soon", frame.Message)
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	_, err := decodeFrame([]byte(`{"not":"an array"}`))
	assert.Error(t, err)

	_, err = decodeFrame([]byte(`[]`))
	assert.Error(t, err)

	_, err = decodeFrame([]byte(`["EVENT","sub-1"]`))
	assert.Error(t, err)
}

func TestEncodeFramesRoundTrip(t *testing.T) {
	ev := nostr.Event{ID: "abc", Kind: 5109, Content: "help"}
	data, err := encodeEventFrame(&ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"EVENT"`)
	assert.Contains(t, string(data), `"abc"`)

	data, err = encodeReqFrame("sub-1", nostr.Filter{Kinds: []int{7000}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"REQ"`)
	assert.Contains(t, string(data), `"sub-1"`)

	data, err = encodeCloseFrame("sub-1")
	require.NoError(t, err)
	assert.Equal(t, `["CLOSE","sub-1"]`, string(data))
}

func TestPublishResultRelayStatuses(t *testing.T) {
	result := PublishResult{
		Accepted: []string{"wss://a.example"},
		Rejected: map[string]string{"wss://b.example": "not connected"},
	}

	statuses := result.RelayStatuses()
	assert.Equal(t, types.RelayStatus{Accepted: true}, statuses["wss://a.example"])
	assert.Equal(t, types.RelayStatus{Accepted: false, Reason: "not connected"}, statuses["wss://b.example"])
}
