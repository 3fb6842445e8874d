package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sse "github.com/tmaxmax/go-sse"
)

// feed parses body and hands every event to a fresh connection, returning
// what its handlers saw and the id it would resume from.
func feed(t *testing.T, body string) ([]string, string) {
	t.Helper()
	c := New(DefaultConfig("http://backend/api/events"), nil, nil)
	var got collector
	c.Subscribe(got.handle)
	for ev, err := range sse.Read(strings.NewReader(body), readConfig) {
		require.NoError(t, err)
		c.handleSSE(ev)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return got.types(), c.lastEventID
}

func TestHandleSSE(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   []string
		lastID string
	}{
		{
			"single data line",
			"data: {\"type\":\"new_call\"}\n\n",
			[]string{TypeNewCall}, "",
		},
		{
			"multi-line data joined with newline",
			"data: {\"type\":\ndata: \"new_call\"}\n\n",
			[]string{TypeNewCall}, "",
		},
		{
			"crlf endings",
			"data: {\"type\":\"new_call\"}\r\n\r\n",
			[]string{TypeNewCall}, "",
		},
		{
			"no space after colon",
			"data:{\"type\":\"new_call\"}\n\n",
			[]string{TypeNewCall}, "",
		},
		{
			"comment between blocks",
			": keepalive\n\ndata: {\"type\":\"new_call\"}\n\n",
			[]string{TypeNewCall}, "",
		},
		{
			"message event with id",
			"event: message\nid: 42\nretry: 1500\ndata: {\"type\":\"new_call\"}\n\n",
			[]string{TypeNewCall}, "42",
		},
		{
			"named event ignored",
			"event: ping\ndata: {\"type\":\"new_call\"}\n\ndata: {\"type\":\"new_message\"}\n\n",
			[]string{TypeNewMessage}, "",
		},
		{
			"comment does not end a named block",
			"event: ping\n: keepalive\ndata: {\"type\":\"new_call\"}\n\n",
			nil, "",
		},
		{
			"id only block moves the id",
			"id: 7\n\n",
			nil, "7",
		},
		{
			"id survives later blocks",
			"id: 7\ndata: {\"type\":\"new_call\"}\n\ndata: {\"type\":\"new_message\"}\n\n",
			[]string{TypeNewCall, TypeNewMessage}, "7",
		},
		{
			"unknown field ignored",
			"foo: bar\ndata: {\"type\":\"new_call\"}\n\n",
			[]string{TypeNewCall}, "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			types, lastID := feed(t, tt.body)
			if tt.want == nil {
				assert.Empty(t, types)
			} else {
				assert.Equal(t, tt.want, types)
			}
			assert.Equal(t, tt.lastID, lastID)
		})
	}
}

func TestActivityReaderReportsComments(t *testing.T) {
	reads := 0
	r := &activityReader{r: strings.NewReader(": keepalive\n\n"), onRead: func() { reads++ }}
	for ev, err := range sse.Read(r, readConfig) {
		require.NoError(t, err)
		t.Fatalf("comment surfaced as event %+v", ev)
	}
	assert.Positive(t, reads)
}

func TestDecode(t *testing.T) {
	evt, err := Decode([]byte(`{"type":"new_message","instance":"loja"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeNewMessage, evt.Type)
	assert.Equal(t, "loja", evt.Instance)
	assert.False(t, evt.ReceivedAt.IsZero())

	evt, err = Decode([]byte(`{"type":"brand_new","extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, "brand_new", evt.Type)
	assert.JSONEq(t, `{"type":"brand_new","extra":1}`, string(evt.Raw))

	for _, bad := range []string{`not json`, `{"type": 5}`, `{}`, `"new_message"`} {
		_, err := Decode([]byte(bad))
		assert.Error(t, err, bad)
	}
}
