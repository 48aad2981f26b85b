package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallString(t *testing.T) {
	call := NewCall("legs.StandUp", []any{50.0, "fast"}, Kwargs{"wait": true, "speed": 62})
	require.Equal(t, `legs.StandUp(50, "fast", speed=62, wait=true)`, call.String())

	require.Equal(t, "legs.Reset()", NewCall("legs.Reset", nil, nil).String())
}

func TestNewCallNormalizesNil(t *testing.T) {
	call := NewCall(PathPing, nil, nil)
	require.NotNil(t, call.Args)
	require.NotNil(t, call.Kwargs)

	// Empty collections encode as [] and {} so every decoder sees the same shape.
	data, err := json.Marshal(call)
	require.NoError(t, err)
	require.JSONEq(t, `{"path":"PING","args":[],"kwargs":{}}`, string(data))
}

func TestResponseClasses(t *testing.T) {
	ok := OK(3)
	require.False(t, ok.IsPathError())
	require.False(t, ok.IsFault())
	require.Equal(t, KindNone, ok.Kind)

	miss := Failure(KindPath, StatusPathError, "AttributeError", `"a" has no attribute "b"`)
	require.True(t, miss.IsPathError())
	require.False(t, miss.IsFault())

	fault := Failure(KindHandler, StatusHandlerError, "StallError", "motor stalled")
	require.True(t, fault.IsFault())
	require.Equal(t, "HandlerError", fault.Kind.String())
}
