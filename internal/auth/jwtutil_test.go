package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	token, err := SignHS256(map[string]any{"sub": "u1", "acct": "holder1"}, []byte("k"))
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	claims, err := ParseAndVerifyHS256(token, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, "holder1", claims["acct"])

	_, err = ParseAndVerifyHS256(token, []byte("other"))
	require.Error(t, err)
}

func TestVerifyRejectsForeignAlgorithms(t *testing.T) {
	token, err := SignHS256(map[string]any{"sub": "u1"}, []byte("k"))
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	none := b64.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	_, err = ParseAndVerifyHS256(none+"."+parts[1]+"."+parts[2], []byte("k"))
	require.ErrorContains(t, err, "algorithm")

	_, err = ParseAndVerifyHS256("not-a-token", []byte("k"))
	require.ErrorIs(t, err, errMalformed)
}
