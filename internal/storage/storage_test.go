package storage

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "releases/2024.6.1/a.tar.gz", JoinKey("/releases/", "2024.6.1", "a.tar.gz"))
	require.Equal(t, "a", JoinKey("", "a", ""))
	require.Equal(t, "", JoinKey())
}

func TestProgressReporter(t *testing.T) {
	t.Parallel()

	require.Nil(t, newProgressReporter(10, nil))

	var calls [][2]int64
	p := newProgressReporter(6, func(done, total int64) {
		calls = append(calls, [2]int64{done, total})
	})
	p.report(0)

	_, err := io.Copy(io.Discard, io.TeeReader(bytes.NewReader([]byte("abcdef")), p))
	require.NoError(t, err)
	p.flush()

	require.Equal(t, [2]int64{0, 6}, calls[0])
	require.Equal(t, [2]int64{6, 6}, calls[len(calls)-1])
}
