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

package master

import (
	"context"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	apierrors "github.com/tachyonfs/tachyon/errors"
	"github.com/tachyonfs/tachyon/proto"
)

// RegisterWorker admits a worker and records its current files'
// locations. A known address is evicted first and cleaned up by the
// liveness monitor.
func (m *Master) RegisterWorker(ctx context.Context, addr proto.NetAddress, capacityBytes, usedBytes int64, currentFileIds []int32) int64 {
	span := trace.SpanFromContextSafe(ctx)

	workerId := m.cluster.Register(ctx, addr, capacityBytes, usedBytes, currentFileIds, nowMs())

	m.nsLock.Lock()
	defer m.nsLock.Unlock()
	for _, fileId := range currentFileIds {
		ino := m.tree.Get(fileId)
		if ino == nil || !ino.IsFile() {
			span.Warnf("register worker %d: no file with id %d", workerId, fileId)
			continue
		}
		ino.AddLocation(workerId, addr)
	}
	return workerId
}

// WorkerHeartbeat refreshes a worker and drops its removed files'
// locations. An unknown worker is told to re-register.
func (m *Master) WorkerHeartbeat(ctx context.Context, workerId int64, usedBytes int64, removedFileIds []int32) *proto.Command {
	if !m.cluster.Heartbeat(ctx, workerId, usedBytes, removedFileIds, nowMs()) {
		return &proto.Command{Type: proto.CommandType_Register}
	}

	m.nsLock.Lock()
	defer m.nsLock.Unlock()
	span := trace.SpanFromContextSafe(ctx)
	for _, fileId := range removedFileIds {
		ino := m.tree.Get(fileId)
		if ino == nil {
			span.Errorf("worker %d removed unknown file %d", workerId, fileId)
			continue
		}
		if ino.IsFile() {
			ino.RemoveLocation(workerId)
		}
	}
	return &proto.Command{Type: proto.CommandType_Nothing}
}

// CachedFile records that a worker holds fileId in memory. It returns
// the file's dependency id when a checkpoint upload should follow, -1
// when the file is independent or already checkpointed.
func (m *Master) CachedFile(ctx context.Context, workerId, workerUsedBytes int64, fileId int32, fileSizeBytes int64) (int32, error) {
	span := trace.SpanFromContextSafe(ctx)

	m.cluster.Touch(workerId, workerUsedBytes, fileId, true, nowMs())
	addr, workerKnown := m.cluster.Address(workerId)

	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	ino := m.tree.Get(fileId)
	if ino == nil || !ino.IsFile() {
		return -1, apierrors.ErrFileDoesNotExist
	}
	if ino.Ready {
		if ino.Length != fileSizeBytes {
			span.Errorf("cached file %d size %d does not match recorded %d", fileId, fileSizeBytes, ino.Length)
			return -1, apierrors.ErrSuspectedFileSize
		}
	} else {
		ino.SetLength(fileSizeBytes)
		if err := m.journal.AppendInodes(ino); err != nil {
			return -1, err
		}
	}
	if workerKnown {
		ino.AddLocation(workerId, addr)
	} else {
		span.Warnf("cached file %d from unregistered worker %d, location not recorded", fileId, workerId)
	}

	m.depsLock.Lock()
	m.graph.FileRestored(fileId)
	m.updateLostGaugeLocked()
	m.depsLock.Unlock()

	if ino.HasCheckpointed() {
		return -1, nil
	}
	return ino.DependencyId, nil
}

// AddCheckpoint records a durable copy of fileId at checkpointPath and
// settles the file's dependency bookkeeping.
func (m *Master) AddCheckpoint(ctx context.Context, workerId int64, fileId int32, fileSizeBytes int64, checkpointPath string) (bool, error) {
	span := trace.SpanFromContextSafe(ctx)

	if workerId != -1 {
		m.cluster.Touch(workerId, -1, 0, false, nowMs())
	}

	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	ino := m.tree.Get(fileId)
	if ino == nil || !ino.IsFile() {
		return false, apierrors.ErrFileDoesNotExist
	}

	needLog := false
	if ino.Ready {
		if ino.Length != fileSizeBytes {
			span.Errorf("checkpoint of file %d size %d does not match recorded %d", fileId, fileSizeBytes, ino.Length)
			return false, apierrors.ErrSuspectedFileSize
		}
	} else {
		ino.SetLength(fileSizeBytes)
		needLog = true
	}

	if !ino.HasCheckpointed() {
		ino.CheckpointPath = checkpointPath
		needLog = true

		m.depsLock.Lock()
		if depId := ino.DependencyId; depId != -1 {
			if dep := m.graph.Get(depId); dep != nil {
				m.graph.ChildCheckpointed(dep, fileId)
			}
		}
		m.depsLock.Unlock()
	}

	m.depsLock.Lock()
	m.graph.FileRestored(fileId)
	m.updateLostGaugeLocked()
	m.depsLock.Unlock()

	if needLog {
		if err := m.journal.AppendInodes(ino); err != nil {
			return false, err
		}
	}
	span.Infof("file %d checkpointed at %s", fileId, checkpointPath)
	return true, nil
}

// GetWorker picks a random worker, or the worker on host when random
// is false.
func (m *Master) GetWorker(ctx context.Context, random bool, host string) (proto.NetAddress, error) {
	return m.cluster.SelectWorker(ctx, random, host)
}

func (m *Master) GetCapacityBytes() int64 {
	return m.cluster.CapacityBytes()
}

func (m *Master) GetUsedBytes() int64 {
	return m.cluster.UsedBytes()
}

func (m *Master) GetWorkerCount() int {
	return m.cluster.WorkerCount()
}

func (m *Master) GetWorkersInfo() []*proto.WorkerInfo {
	return m.cluster.WorkersInfo(nowMs())
}
