package database

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client, err := ConnectRedis("redis://" + mini.Addr() + "/0")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis("")
	require.Error(t, err)

	_, err = ConnectRedis("not-a-redis-url")
	require.ErrorContains(t, err, "parse")
}
