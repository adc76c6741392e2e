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
	"time"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/tachyonfs/tachyon/master/cluster"
)

// heartbeatLoop is the liveness monitor: it times out stale workers
// and cleans up the files they held.
func (m *Master) heartbeatLoop() {
	ticker := time.NewTicker(time.Duration(m.cfg.HeartbeatIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, ctx := trace.StartSpanFromContext(context.Background(), "master-heartbeat")
			m.checkWorkers(ctx)
		case <-m.done:
			return
		}
	}
}

// checkWorkers sweeps for timed-out workers, drains the lost queue and
// fires the worker-restart hook when anything died.
func (m *Master) checkWorkers(ctx context.Context) {
	span := trace.SpanFromContextSafe(ctx)

	hadFailedWorker := m.cluster.DetectLostWorkers(ctx, nowMs())
	for w := m.cluster.TakeLostWorker(); w != nil; w = m.cluster.TakeLostWorker() {
		hadFailedWorker = true
		m.cleanupLostWorker(ctx, w)
	}

	if hadFailedWorker {
		span.Warnf("restarting failed workers")
		if err := m.launcher.Launch(ctx, m.cfg.Home+"/bin/restart-failed-workers.sh"); err != nil {
			span.Errorf("worker restart hook failed: %s", err)
		}
	}
}

// cleanupLostWorker drops the dead worker's locations and marks the
// files it orphaned as lost.
func (m *Master) cleanupLostWorker(ctx context.Context, w *cluster.LostWorker) {
	span := trace.SpanFromContextSafe(ctx)

	m.nsLock.Lock()
	defer m.nsLock.Unlock()
	m.depsLock.Lock()
	defer m.depsLock.Unlock()

	for _, fileId := range w.Files {
		ino := m.tree.Get(fileId)
		if ino == nil || !ino.IsFile() {
			continue
		}
		ino.RemoveLocation(w.Id)
		if ino.HasCheckpointed() || ino.InMemory() {
			span.Infof("file %s only lost an in-memory copy on worker %d", m.tree.Path(ino), w.Id)
			continue
		}

		m.graph.LostFiles[fileId] = struct{}{}
		depId := ino.DependencyId
		if depId == -1 {
			span.Errorf("permanent data loss: file %s had no checkpoint and no lineage", m.tree.Path(ino))
			continue
		}
		if dep := m.graph.Get(depId); dep != nil {
			dep.AddLostFile(fileId)
			if !m.cfg.ProactiveRecovery {
				m.graph.MustRecompute[depId] = struct{}{}
			}
		}
	}
	m.updateLostGaugeLocked()
}
