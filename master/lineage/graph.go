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

package lineage

import (
	"sort"
	"sync/atomic"
)

// Graph holds the dependency DAG plus the recovery bookkeeping sets.
// Like the namespace tree it carries no lock of its own; the caller
// serializes access under the dependency lock.
type Graph struct {
	dependencies      map[int32]*Dependency
	dependencyCounter int32

	// Bookkeeping, all keyed by id.
	Uncheckpointed  map[int32]struct{}
	Priority        map[int32]struct{}
	LostFiles       map[int32]struct{}
	BeingRecomputed map[int32]struct{}
	MustRecompute   map[int32]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		dependencies:    make(map[int32]*Dependency),
		Uncheckpointed:  make(map[int32]struct{}),
		Priority:        make(map[int32]struct{}),
		LostFiles:       make(map[int32]struct{}),
		BeingRecomputed: make(map[int32]struct{}),
		MustRecompute:   make(map[int32]struct{}),
	}
}

func (g *Graph) Get(id int32) *Dependency {
	return g.dependencies[id]
}

func (g *Graph) Len() int {
	return len(g.dependencies)
}

func (g *Graph) NextId() int32 {
	return atomic.AddInt32(&g.dependencyCounter, 1)
}

func (g *Graph) DependencyCounter() int32 {
	return atomic.LoadInt32(&g.dependencyCounter)
}

func (g *Graph) EnsureCounterAtLeast(v int32) {
	for {
		cur := atomic.LoadInt32(&g.dependencyCounter)
		if cur >= v || atomic.CompareAndSwapInt32(&g.dependencyCounter, cur, v) {
			return
		}
	}
}

// Install places a recovered dependency record and restores its
// checkpoint bookkeeping.
func (g *Graph) Install(dep *Dependency) {
	g.EnsureCounterAtLeast(dep.Id)
	g.dependencies[dep.Id] = dep
	if dep.HasCheckpointed() {
		delete(g.Uncheckpointed, dep.Id)
	} else {
		g.Uncheckpointed[dep.Id] = struct{}{}
	}
}

// Add registers a freshly created dependency: tracks it as
// uncheckpointed unless all children already are, and links it as a
// child of each parent dependency.
func (g *Graph) Add(dep *Dependency) {
	g.dependencies[dep.Id] = dep
	if !dep.HasCheckpointed() {
		g.Uncheckpointed[dep.Id] = struct{}{}
	}
	for _, parentDepId := range dep.ParentDependencies {
		if parent := g.dependencies[parentDepId]; parent != nil {
			parent.AddChildDependency(dep.Id)
		}
	}
}

// ChildCheckpointed records a checkpointed child file; when the whole
// dependency becomes checkpointed it leaves both the uncheckpointed
// and priority sets.
func (g *Graph) ChildCheckpointed(dep *Dependency, fileId int32) {
	dep.ChildCheckpointed(fileId)
	if dep.HasCheckpointed() {
		delete(g.Uncheckpointed, dep.Id)
		delete(g.Priority, dep.Id)
	}
}

// FileRestored clears a file's lost and being-recomputed marks once a
// worker holds it again.
func (g *Graph) FileRestored(fileId int32) {
	delete(g.LostFiles, fileId)
	delete(g.BeingRecomputed, fileId)
}

// PriorityList rebuilds the priority set when empty: uncheckpointed
// dependencies without children dependencies first, and failing that
// the single oldest uncheckpointed dependency. A sorted snapshot is
// returned.
func (g *Graph) PriorityList() []int32 {
	if len(g.Priority) == 0 {
		earliest := int64(1<<63 - 1)
		earliestDepId := int32(-1)
		for depId := range g.Uncheckpointed {
			dep := g.dependencies[depId]
			if !dep.HasChildrenDependency() {
				g.Priority[dep.Id] = struct{}{}
			}
			if dep.CreationTimeMs < earliest {
				earliest = dep.CreationTimeMs
				earliestDepId = dep.Id
			}
		}
		if len(g.Priority) == 0 && earliestDepId != -1 {
			g.Priority[earliestDepId] = struct{}{}
		}
	}

	ret := make([]int32, 0, len(g.Priority))
	for depId := range g.Priority {
		ret = append(ret, depId)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Dependencies returns every dependency ordered by id, for checkpoint
// images.
func (g *Graph) Dependencies() []*Dependency {
	ret := make([]*Dependency, 0, len(g.dependencies))
	for _, dep := range g.dependencies {
		ret = append(ret, dep)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Id < ret[j].Id })
	return ret
}
