package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseEnvelope(t *testing.T) {
	msg, err := parseEnvelope([]byte(`{"event":"join","data":{"roomId":"lobby","username":"alice"}}`))
	require.NoError(t, err)
	require.Equal(t, EventJoin, msg.Event)
	require.Equal(t, "lobby", msg.Data.Get("roomId").String())

	msg, err = parseEnvelope([]byte(`{"event":"chat-message"}`))
	require.NoError(t, err, "missing data is an empty object")
	require.True(t, msg.Data.IsObject())
	require.False(t, msg.Data.Get("message").Exists())

	msg, err = parseEnvelope([]byte(`{"event":"chat-message","data":null}`))
	require.NoError(t, err)
	require.True(t, msg.Data.IsObject())
}

func TestParseEnvelope_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":        `{"event":`,
		"array":           `[1,2]`,
		"string":          `"join"`,
		"no event":        `{"data":{}}`,
		"empty event":     `{"event":"","data":{}}`,
		"numeric event":   `{"event":7,"data":{}}`,
		"scalar data":     `{"event":"join","data":"lobby"}`,
		"array data":      `{"event":"join","data":["lobby"]}`,
		"trailing object": `{"event":"join"} {"event":"join"}`,
	} {
		_, err := parseEnvelope([]byte(raw))
		require.Error(t, err, name)
	}
}

func TestCoerceString(t *testing.T) {
	data := gjson.Parse(`{"s":"  r1 ","n":42,"f":1.5,"big":1e3,"t":true,"f2":false,"null":null,"obj":{"a":1},"arr":[1]}`)

	require.Equal(t, "  r1 ", coerceString(data.Get("s")))
	require.Equal(t, "r1", trimmedField(data, "s"))
	require.Equal(t, "42", coerceString(data.Get("n")))
	require.Equal(t, "1.5", coerceString(data.Get("f")))
	require.Equal(t, "1000", coerceString(data.Get("big")))
	require.Equal(t, "true", coerceString(data.Get("t")))
	require.Equal(t, "false", coerceString(data.Get("f2")))
	require.Empty(t, coerceString(data.Get("null")))
	require.Empty(t, coerceString(data.Get("obj")))
	require.Empty(t, coerceString(data.Get("arr")))
	require.Empty(t, coerceString(data.Get("missing")))
}

func TestRawField(t *testing.T) {
	data := gjson.Parse(`{"offer":{"type":"offer","sdp":"v=0"},"n":3}`)
	require.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(rawField(data, "offer")))
	require.Equal(t, "3", string(rawField(data, "n")))
	require.Equal(t, "null", string(rawField(data, "missing")))
}

func TestEncodeFrame(t *testing.T) {
	alice := "alice"
	frame, err := encodeFrame(EventOffer, newRelayPayload(EventOffer, json.RawMessage(`{"sdp":"x"}`), "c1", &alice))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"offer","data":{"offer":{"sdp":"x"},"from":"c1","username":"alice"}}`, string(frame))

	frame, err = encodeFrame(EventICECandidate, newRelayPayload(EventICECandidate, jsonNull, "c2", nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"ice-candidate","data":{"candidate":null,"from":"c2","username":null}}`, string(frame))

	frame, err = encodeFrame(EventExistingUsers, existingUsersPayload{Users: []peer{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"existing-users","data":{"users":[]}}`, string(frame))
}
