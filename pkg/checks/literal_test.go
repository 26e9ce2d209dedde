package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

func TestLiteralMatch(t *testing.T) {
	resp := &transport.Response{StatusCode: 200, Body: []byte("uid=0(root) gid=0(root)\nroot:x:0:0")}
	sig, err := LiteralMatch(resp, []string{"uid=", "root:", "default=", "[boot loader]", ""})
	require.NoError(t, err)

	assert.Equal(t, "LITERAL_MATCH", sig.Key)
	assert.Equal(t, []string{"KNOWN_BAD_STRING"}, sig.Tags)
	assert.True(t, sig.MatchesTag(TagKnownBadString))
	assert.Equal(t, 1.0, sig.Strength)
	assert.Equal(t, []string{"uid=", "root:"}, sig.Evidence.Data["matches"])
	assert.Contains(t, sig.Text, "uid=, root:")
}

func TestLiteralMatch_NoHit(t *testing.T) {
	sig, err := LiteralMatch(&transport.Response{Body: []byte("hello")}, []string{"uid="})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sig.Strength)

	_, err = LiteralMatch(nil, nil)
	assert.ErrorIs(t, err, ErrNilResponse)
}
