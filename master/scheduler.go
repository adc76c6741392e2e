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
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/tachyonfs/tachyon/master/lineage"
	"github.com/tachyonfs/tachyon/metrics"
)

// recomputeLoop drives lineage recovery: it launches every dependency
// whose parents are all present and cascades recomputation up to
// ancestors whose own outputs are lost.
func (m *Master) recomputeLoop() {
	for {
		select {
		case <-m.done:
			return
		default:
		}

		_, ctx := trace.StartSpanFromContext(context.Background(), "recompute-scheduler")
		launched, blocked := m.scheduleRecompute(ctx)
		if blocked && !launched {
			trace.SpanFromContextSafe(ctx).Infof("lost files present but no job can be launched")
		}
		if !launched {
			select {
			case <-m.done:
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// scheduleRecompute makes one pass over must_recompute_deps. It
// reports whether any command launched and whether work remains
// blocked on lost parents.
func (m *Master) scheduleRecompute(ctx context.Context) (launched, blocked bool) {
	span := trace.SpanFromContextSafe(ctx)

	m.nsLock.Lock()
	m.depsLock.Lock()

	var launchList []*lineage.Dependency
	if len(m.graph.MustRecompute) > 0 {
		queue := make([]int32, 0, len(m.graph.MustRecompute))
		for depId := range m.graph.MustRecompute {
			queue = append(queue, depId)
		}

		for len(queue) > 0 {
			depId := queue[0]
			queue = queue[1:]
			dep := m.graph.Get(depId)
			if dep == nil {
				continue
			}
			canLaunch := true
			for _, parentFileId := range dep.ParentFiles {
				if _, lost := m.graph.LostFiles[parentFileId]; !lost {
					continue
				}
				canLaunch = false
				if _, being := m.graph.BeingRecomputed[parentFileId]; being {
					continue
				}
				// The lost parent is not under recovery yet: pull its
				// own dependency into the recompute set.
				parent := m.tree.Get(parentFileId)
				if parent == nil || !parent.IsFile() || parent.DependencyId == -1 {
					continue
				}
				if _, in := m.graph.MustRecompute[parent.DependencyId]; !in {
					m.graph.MustRecompute[parent.DependencyId] = struct{}{}
					queue = append(queue, parent.DependencyId)
				}
			}
			if canLaunch {
				launchList = append(launchList, dep)
			}
		}

		blocked = len(m.graph.MustRecompute) > len(launchList)

		for _, dep := range launchList {
			delete(m.graph.MustRecompute, dep.Id)
			// Files under recovery are no longer counted lost.
			for _, fileId := range dep.LostFileIds() {
				delete(m.graph.LostFiles, fileId)
				m.graph.BeingRecomputed[fileId] = struct{}{}
				delete(dep.LostFiles, fileId)
			}
		}
		m.updateLostGaugeLocked()
	}

	m.depsLock.Unlock()
	m.nsLock.Unlock()

	for _, dep := range launchList {
		cmd := dep.Command + " &> " + m.cfg.Home + "/logs/rerun " +
			strconv.FormatInt(atomic.AddInt64(&m.rerunCounter, 1), 10)
		span.Infof("launching recomputation of dependency %d: %s", dep.Id, cmd)
		if err := m.launcher.Launch(ctx, cmd); err != nil {
			span.Errorf("launch of dependency %d failed: %s", dep.Id, err)
			continue
		}
		metrics.RecomputeLaunched.Inc()
	}
	return len(launchList) > 0, blocked
}
