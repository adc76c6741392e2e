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
	"github.com/tachyonfs/tachyon/master/lineage"
	"github.com/tachyonfs/tachyon/master/namespace"
	"github.com/tachyonfs/tachyon/metrics"
	"github.com/tachyonfs/tachyon/proto"
)

// CreateDependency records the lineage that produced children from
// parents. Folder paths expand to the files beneath them; the children
// must be pre-existing files.
func (m *Master) CreateDependency(ctx context.Context, parents, children []string,
	commandPrefix string, data [][]byte, comment, framework, frameworkVersion string,
	typ proto.DependencyType,
) (int32, error) {
	span := trace.SpanFromContextSafe(ctx)

	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	parentIds, err := m.filesIdsLocked(parents)
	if err != nil {
		return 0, err
	}
	childIds, err := m.filesIdsLocked(children)
	if err != nil {
		return 0, err
	}

	parentDepIds := []int32{}
	seen := map[int32]struct{}{}
	for _, parentId := range parentIds {
		ino := m.tree.Get(parentId)
		if ino == nil || !ino.IsFile() {
			span.Infof("dependency parent %d is not a file", parentId)
			return 0, apierrors.ErrInvalidPath
		}
		if _, ok := seen[ino.DependencyId]; !ok {
			seen[ino.DependencyId] = struct{}{}
			parentDepIds = append(parentDepIds, ino.DependencyId)
		}
	}

	dep := lineage.NewDependency(m.graph.NextId(), parentIds, childIds, commandPrefix,
		data, comment, framework, frameworkVersion, typ, parentDepIds, nowMs())

	childInodes := make([]*namespace.Inode, 0, len(childIds))
	for _, childId := range childIds {
		ino := m.tree.Get(childId)
		ino.DependencyId = dep.Id
		childInodes = append(childInodes, ino)
		if ino.HasCheckpointed() {
			dep.ChildCheckpointed(childId)
		}
	}

	m.depsLock.Lock()
	m.graph.Add(dep)
	m.depsLock.Unlock()

	if err = m.journal.AppendInodesAndDependency(childInodes, dep); err != nil {
		return 0, err
	}
	span.Infof("dependency %d created: %d parents, %d children, framework %s",
		dep.Id, len(parentIds), len(childIds), framework)
	return dep.Id, nil
}

// filesIdsLocked expands each path to the file ids beneath it.
func (m *Master) filesIdsLocked(paths []string) ([]int32, error) {
	ret := []int32{}
	for _, path := range paths {
		ids, err := m.tree.ListFiles(path, true)
		if err != nil {
			return nil, err
		}
		ret = append(ret, ids...)
	}
	return ret, nil
}

func (m *Master) GetClientDependencyInfo(ctx context.Context, dependencyId int32) (*proto.DependencyInfo, error) {
	m.depsLock.Lock()
	defer m.depsLock.Unlock()

	dep := m.graph.Get(dependencyId)
	if dep == nil {
		return nil, apierrors.ErrDependencyNotExist
	}
	return dep.ToDependencyInfo(), nil
}

// ReportLostFile marks a file as lost and queues its dependency for
// recomputation. A file without lineage cannot be recovered.
func (m *Master) ReportLostFile(ctx context.Context, fileId int32) {
	span := trace.SpanFromContextSafe(ctx)

	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	ino := m.tree.Get(fileId)
	if ino == nil {
		span.Warnf("reported lost file %d does not exist", fileId)
		return
	}
	if !ino.IsFile() {
		span.Warnf("reported lost inode %d is a folder", fileId)
		return
	}

	m.depsLock.Lock()
	defer m.depsLock.Unlock()

	m.graph.LostFiles[fileId] = struct{}{}
	depId := ino.DependencyId
	if depId == -1 {
		span.Errorf("no lineage for lost file %s, it cannot be recovered", m.tree.Path(ino))
	} else if dep := m.graph.Get(depId); dep != nil {
		span.Infof("lost file %s will be recomputed via dependency %d", m.tree.Path(ino), depId)
		dep.AddLostFile(fileId)
		m.graph.MustRecompute[depId] = struct{}{}
	}
	m.updateLostGaugeLocked()
}

// GetPriorityDependencyList snapshots the dependencies preferred for
// proactive checkpointing.
func (m *Master) GetPriorityDependencyList(ctx context.Context) []int32 {
	m.depsLock.Lock()
	defer m.depsLock.Unlock()
	return m.graph.PriorityList()
}

func (m *Master) updateLostGaugeLocked() {
	metrics.LostFiles.Set(float64(len(m.graph.LostFiles)))
}
