package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Action
	}{
		{"reload", `{"action":"reload"}`, Reload{}},
		{"reload ignores extra fields", `{"action":"reload","path":"/x"}`, Reload{}},
		{"reload-css", `{"action":"reload-css","path":"/a.css","updatedPath":"/a.css?v=2"}`, ReloadCSS{Path: "/a.css", UpdatedPath: "/a.css?v=2"}},
		{"render-hud", `{"action":"render-hud","markup":"<b>hi</b>"}`, RenderHud{Markup: "<b>hi</b>"}},
		{"render-hud empty markup", `{"action":"render-hud"}`, RenderHud{}},
		{"unknown", `{"action":"unknown-future-action"}`, Unknown{Action: "unknown-future-action"}},
		{"missing action", `{"markup":"x"}`, Unknown{}},
		{"surrounding whitespace", "  {\"action\":\"reload\"}\n", Reload{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, data := range []string{"", "not json", "{", "42", "null", `["reload"]`, `{"action":7}`} {
		t.Run(data, func(t *testing.T) {
			_, err := Decode([]byte(data))
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %v", err)
			assert.Equal(t, data, decodeErr.Data)
		})
	}
}

func TestDecodeValidation(t *testing.T) {
	_, err := Decode([]byte(`{"action":"reload-css","updatedPath":"/a.css?v=2"}`))
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "path", validationErr.Field)

	_, err = Decode([]byte(`{"action":"reload-css","path":"/a.css"}`))
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "updatedPath", validationErr.Field)
}

func TestDecodeErrorTruncatesData(t *testing.T) {
	err := &DecodeError{Data: strings.Repeat("x", 500), Err: errNotObject}
	assert.Less(t, len(err.Error()), 300)
	assert.ErrorIs(t, err, errNotObject)
}

func TestEncode(t *testing.T) {
	data, err := Encode(ReloadCSS{Path: "/a.css", UpdatedPath: "/a.css?v=2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"reload-css","path":"/a.css","updatedPath":"/a.css?v=2"}`, string(data))

	data, err = Encode(Reload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"reload"}`, string(data))

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Reload{}, decoded)
}
