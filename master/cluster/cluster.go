// Copyright 2026 The TachyonFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package cluster

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	apierrors "github.com/tachyonfs/tachyon/errors"
	"github.com/tachyonfs/tachyon/metrics"
	"github.com/tachyonfs/tachyon/proto"
)

// lostQueueSize bounds the queue of dead workers awaiting cleanup.
const lostQueueSize = 32

type Config struct {
	WorkerTimeoutMs int64 `json:"worker_timeout_ms"`
}

// Cluster is the worker registry: id -> worker, address -> id, and the
// queue of lost workers awaiting cleanup. It owns its lock and is
// never held while the namespace or dependency locks are taken.
type Cluster struct {
	cfg *Config

	// Worker ids are the master start time (ms, floored to 1e6) plus a
	// counter, so ids from a previous master incarnation never collide.
	startTimePrefix int64
	workerCounter   int64

	workers     map[int64]*workerInfo
	addressToId map[proto.NetAddress]int64
	lostWorkers chan *LostWorker

	rand *rand.Rand
	lock sync.RWMutex
}

func NewCluster(startTimeMs int64, cfg *Config) *Cluster {
	return &Cluster{
		cfg:             cfg,
		startTimePrefix: startTimeMs - (startTimeMs % 1000000),
		workers:         make(map[int64]*workerInfo),
		addressToId:     make(map[proto.NetAddress]int64),
		lostWorkers:     make(chan *LostWorker, lostQueueSize),
		rand:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register adds a worker. A worker re-registering from a known address
// evicts its old record onto the lost queue first, so stale file
// locations get cleaned up.
func (c *Cluster) Register(ctx context.Context, addr proto.NetAddress, capacityBytes, usedBytes int64, fileIds []int32, nowMs int64) int64 {
	span := trace.SpanFromContextSafe(ctx)

	c.lock.Lock()
	defer c.lock.Unlock()

	if oldId, ok := c.addressToId[addr]; ok {
		old := c.workers[oldId]
		delete(c.addressToId, addr)
		delete(c.workers, oldId)
		if old != nil {
			span.Warnf("worker %s already registered as %d, evicting", addr.Host, oldId)
			c.enqueueLostLocked(ctx, old)
		}
	}

	id := c.startTimePrefix + atomic.AddInt64(&c.workerCounter, 1)
	w := newWorkerInfo(id, addr, capacityBytes)
	w.UsedBytes = usedBytes
	w.updateFiles(true, fileIds)
	w.touch(nowMs)
	c.workers[id] = w
	c.addressToId[addr] = id

	span.Infof("registered worker %d at %s:%d with %d files", id, addr.Host, addr.Port, len(fileIds))
	return id
}

// Heartbeat refreshes a worker's record. It reports false when the
// worker is unknown and must re-register; no state changes in that
// case.
func (c *Cluster) Heartbeat(ctx context.Context, workerId int64, usedBytes int64, removedFileIds []int32, nowMs int64) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	w := c.workers[workerId]
	if w == nil {
		trace.SpanFromContextSafe(ctx).Infof("heartbeat from unknown worker %d, sending register command", workerId)
		return false
	}
	w.UsedBytes = usedBytes
	w.updateFiles(false, removedFileIds)
	w.touch(nowMs)
	return true
}

// Touch refreshes liveness and usage for a worker observed in a file
// RPC. The file is recorded in the worker's set when addFile is set.
func (c *Cluster) Touch(workerId int64, usedBytes int64, fileId int32, addFile bool, nowMs int64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	w := c.workers[workerId]
	if w == nil {
		return
	}
	if usedBytes >= 0 {
		w.UsedBytes = usedBytes
	}
	if addFile {
		w.updateFile(true, fileId)
	}
	w.touch(nowMs)
}

// Address returns the registered address of a worker.
func (c *Cluster) Address(workerId int64) (proto.NetAddress, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	w := c.workers[workerId]
	if w == nil {
		return proto.NetAddress{}, false
	}
	return w.Address, true
}

// SelectWorker picks a uniformly random worker, or the worker whose
// host matches when random is false.
func (c *Cluster) SelectWorker(ctx context.Context, random bool, host string) (proto.NetAddress, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if random {
		if len(c.workers) == 0 {
			return proto.NetAddress{}, apierrors.ErrNoLocalWorker
		}
		index := c.rand.Intn(len(c.workers))
		for _, w := range c.workers {
			if index == 0 {
				return w.Address, nil
			}
			index--
		}
	} else {
		for _, w := range c.workers {
			if w.Address.Host == host {
				return w.Address, nil
			}
		}
	}
	trace.SpanFromContextSafe(ctx).Infof("no local worker on %s", host)
	return proto.NetAddress{}, apierrors.ErrNoLocalWorker
}

// DetectLostWorkers moves every timed-out worker onto the lost queue
// and out of the registry. It reports whether any worker timed out.
func (c *Cluster) DetectLostWorkers(ctx context.Context, nowMs int64) bool {
	span := trace.SpanFromContextSafe(ctx)

	c.lock.Lock()
	defer c.lock.Unlock()

	detected := false
	for id, w := range c.workers {
		if nowMs-w.LastUpdatedMs <= c.cfg.WorkerTimeoutMs {
			continue
		}
		span.Errorf("worker %d at %s:%d timed out", id, w.Address.Host, w.Address.Port)
		delete(c.workers, id)
		delete(c.addressToId, w.Address)
		c.enqueueLostLocked(ctx, w)
		detected = true
	}
	return detected
}

// TakeLostWorker pops one lost worker awaiting cleanup, nil when the
// queue is empty.
func (c *Cluster) TakeLostWorker() *LostWorker {
	select {
	case w := <-c.lostWorkers:
		return w
	default:
		return nil
	}
}

func (c *Cluster) enqueueLostLocked(ctx context.Context, w *workerInfo) {
	lost := &LostWorker{Id: w.Id, Address: w.Address, Files: w.fileIds()}
	select {
	case c.lostWorkers <- lost:
		metrics.WorkersLost.Inc()
	default:
		trace.SpanFromContextSafe(ctx).Errorf("lost worker queue full, dropping worker %d", w.Id)
	}
}

func (c *Cluster) CapacityBytes() int64 {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var ret int64
	for _, w := range c.workers {
		ret += w.CapacityBytes
	}
	return ret
}

func (c *Cluster) UsedBytes() int64 {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var ret int64
	for _, w := range c.workers {
		ret += w.UsedBytes
	}
	return ret
}

func (c *Cluster) WorkerCount() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.workers)
}

func (c *Cluster) WorkersInfo(nowMs int64) []*proto.WorkerInfo {
	c.lock.RLock()
	defer c.lock.RUnlock()

	ret := make([]*proto.WorkerInfo, 0, len(c.workers))
	for _, w := range c.workers {
		ret = append(ret, w.toProtoWorker(nowMs))
	}
	return ret
}
