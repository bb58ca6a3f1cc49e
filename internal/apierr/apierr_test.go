package apierr

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteKnownError(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, New(NotIndexed, "repo has not been indexed"))

	assert.Equal(t, 404, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, NotIndexed, env.Error.Code)
}

func TestWriteUnclassifiedErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, assertUnwrappedErr{})

	assert.Equal(t, 500, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, Internal, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "leaked")
}

type assertUnwrappedErr struct{}

func (assertUnwrappedErr) Error() string { return "leaked internal detail" }

func TestStatusMapping(t *testing.T) {
	cases := map[Code]int{
		InvalidRepo:            400,
		InvalidRequest:         400,
		NotIndexed:             404,
		Busy:                   409,
		IndexDimensionMismatch: 409,
		Internal:               500,
	}
	for code, want := range cases {
		e := New(code, "x")
		assert.Equal(t, want, e.Status())
	}
}
