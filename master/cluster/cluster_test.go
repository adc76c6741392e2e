package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	apierrors "github.com/tachyonfs/tachyon/errors"
	"github.com/tachyonfs/tachyon/proto"
)

var ctx = context.Background()

func testCluster(timeoutMs int64) *Cluster {
	return NewCluster(1700000000123, &Config{WorkerTimeoutMs: timeoutMs})
}

func TestRegisterWorker(t *testing.T) {
	c := testCluster(10000)
	addr := proto.NetAddress{Host: "w1", Port: 29998}

	id := c.Register(ctx, addr, 1000, 100, []int32{3, 4}, 1)
	// ids carry the start-time prefix so they never collide across
	// master incarnations
	require.Equal(t, int64(1700000000000+1), id)
	require.Equal(t, 1, c.WorkerCount())
	require.Equal(t, int64(1000), c.CapacityBytes())
	require.Equal(t, int64(100), c.UsedBytes())

	got, ok := c.Address(id)
	require.True(t, ok)
	require.Equal(t, addr, got)
}

func TestRegisterEvictsOldAddress(t *testing.T) {
	c := testCluster(10000)
	addr := proto.NetAddress{Host: "w1", Port: 29998}

	oldId := c.Register(ctx, addr, 1000, 0, []int32{3}, 1)
	newId := c.Register(ctx, addr, 1000, 0, nil, 2)
	require.NotEqual(t, oldId, newId)
	require.Equal(t, 1, c.WorkerCount())

	lost := c.TakeLostWorker()
	require.NotNil(t, lost)
	require.Equal(t, oldId, lost.Id)
	require.Equal(t, []int32{3}, lost.Files)
	require.Nil(t, c.TakeLostWorker())
}

func TestHeartbeat(t *testing.T) {
	c := testCluster(10000)
	addr := proto.NetAddress{Host: "w1", Port: 29998}
	id := c.Register(ctx, addr, 1000, 0, []int32{3, 4}, 1)

	require.True(t, c.Heartbeat(ctx, id, 555, []int32{3}, 2))
	infos := c.WorkersInfo(2)
	require.Len(t, infos, 1)
	require.Equal(t, int64(555), infos[0].UsedBytes)

	// unknown worker: no side effects, caller sends Register
	require.False(t, c.Heartbeat(ctx, id+99, 1, nil, 3))
	require.Equal(t, 1, c.WorkerCount())
}

func TestDetectLostWorkers(t *testing.T) {
	c := testCluster(100)
	addr := proto.NetAddress{Host: "w1", Port: 29998}
	id := c.Register(ctx, addr, 1000, 0, []int32{7}, 1000)

	require.False(t, c.DetectLostWorkers(ctx, 1050))
	require.Equal(t, 1, c.WorkerCount())

	require.True(t, c.DetectLostWorkers(ctx, 2000))
	require.Equal(t, 0, c.WorkerCount())
	lost := c.TakeLostWorker()
	require.NotNil(t, lost)
	require.Equal(t, id, lost.Id)
	require.Equal(t, []int32{7}, lost.Files)

	// the registry is empty afterwards
	require.False(t, c.DetectLostWorkers(ctx, 3000))
}

func TestSelectWorker(t *testing.T) {
	c := testCluster(10000)
	addr1 := proto.NetAddress{Host: "h1", Port: 1}
	addr2 := proto.NetAddress{Host: "h2", Port: 2}
	c.Register(ctx, addr1, 1, 0, nil, 1)
	c.Register(ctx, addr2, 1, 0, nil, 1)

	got, err := c.SelectWorker(ctx, false, "h2")
	require.NoError(t, err)
	require.Equal(t, addr2, got)

	_, err = c.SelectWorker(ctx, false, "h3")
	require.ErrorIs(t, err, apierrors.ErrNoLocalWorker)

	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		got, err = c.SelectWorker(ctx, true, "")
		require.NoError(t, err)
		seen[got.Host] = true
	}
	require.True(t, seen["h1"])
	require.True(t, seen["h2"])
}

func TestSelectWorkerEmpty(t *testing.T) {
	c := testCluster(10000)
	_, err := c.SelectWorker(ctx, true, "")
	require.ErrorIs(t, err, apierrors.ErrNoLocalWorker)
}

func TestTouch(t *testing.T) {
	c := testCluster(10000)
	addr := proto.NetAddress{Host: "w1", Port: 29998}
	id := c.Register(ctx, addr, 1000, 0, nil, 1)

	c.Touch(id, 321, 9, true, 500)
	infos := c.WorkersInfo(500)
	require.Equal(t, int64(321), infos[0].UsedBytes)

	require.False(t, c.DetectLostWorkers(ctx, 500+9999))

	// touching an unknown worker is a no-op
	c.Touch(id+1, 1, 1, true, 1)
}
