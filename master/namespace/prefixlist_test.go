package namespace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrefixList(t *testing.T) {
	l := ParsePrefixList("/pin;/data/gold, /tmp/keep")
	require.Equal(t, []string{"/pin", "/data/gold", "/tmp/keep"}, l.List())

	require.True(t, l.InList("/pin/a/b"))
	require.True(t, l.InList("/data/gold"))
	require.True(t, l.InList("/tmp/keep/x"))
	require.False(t, l.InList("/data/silver"))
	require.False(t, l.InList("/p"))
}

func TestEmptyPrefixList(t *testing.T) {
	l := ParsePrefixList("")
	require.Empty(t, l.List())
	require.False(t, l.InList("/anything"))

	l = ParsePrefixList(" ; , ")
	require.Empty(t, l.List())
}
