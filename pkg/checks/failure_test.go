package checks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

func TestTransportFailure(t *testing.T) {
	tests := []struct {
		name    string
		failure *transport.Failure
		key     string
		tag     string
		text    string
	}{
		{"connection", &transport.Failure{Outcome: transport.ConnectionFailure}, "HTTP_FAILURE_CONNECTIONERROR", TagConnectionFail, "Error connecting to server."},
		{"http error", &transport.Failure{Outcome: transport.HTTPError}, "HTTP_FAILURE_HTTPERROR", TagConnectionFail, "An HTTP error occurred."},
		{"redirects", &transport.Failure{Outcome: transport.TooManyRedirects}, "HTTP_FAILURE_TOOMANYREDIRECTS", TagServerFail, "too many redirects"},
		{"timeout", &transport.Failure{Outcome: transport.Timeout}, "HTTP_FAILURE_TIMEOUT", TagConnectionTimeout, "Request timed out."},
		{"unknown kind", &transport.Failure{Outcome: transport.Other, Name: "ChunkedEncodingError"}, "HTTP_FAILURE_CHUNKEDENCODINGERROR", TagConnectionFail, "unexpected ChunkedEncodingError error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := TransportFailure(tt.failure)
			require.NoError(t, err)
			assert.Equal(t, tt.key, sig.Key)
			assert.Equal(t, []string{TagExceptionRaised, tt.tag}, sig.Tags)
			assert.Equal(t, 1.0, sig.Strength)
			assert.Contains(t, sig.Text, tt.text)
			assert.Same(t, tt.failure, sig.Evidence.Failure)
		})
	}
}

func TestTransportFailure_RecordsError(t *testing.T) {
	sig, err := TransportFailure(&transport.Failure{Outcome: transport.Timeout, Err: errors.New("deadline")})
	require.NoError(t, err)
	assert.Equal(t, "deadline", sig.Evidence.Data["error"])
}

func TestTransportFailure_Nil(t *testing.T) {
	_, err := TransportFailure(nil)
	assert.ErrorIs(t, err, ErrNilFailure)
}
