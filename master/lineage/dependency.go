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
	"github.com/tachyonfs/tachyon/proto"
)

// Dependency records the command that produced ChildrenFiles from
// ParentFiles, enabling recomputation of lost children. Dependencies
// are never deleted; they remain available for recomputing
// descendants even after their files are gone.
type Dependency struct {
	Id                 int32                `json:"id"`
	ParentFiles        []int32              `json:"parent_files"`
	ChildrenFiles      []int32              `json:"children_files"`
	Command            string               `json:"command"`
	Data               [][]byte             `json:"data"`
	Comment            string               `json:"comment"`
	Framework          string               `json:"framework"`
	FrameworkVersion   string               `json:"framework_version"`
	Type               proto.DependencyType `json:"type"`
	CreationTimeMs     int64                `json:"creation_time_ms"`
	ParentDependencies []int32              `json:"parent_dependencies"`

	ChildrenDependencies []int32            `json:"children_dependencies"`
	UnfinishedChildren   map[int32]struct{} `json:"unfinished_children"`
	LostFiles            map[int32]struct{} `json:"lost_files"`
}

func NewDependency(id int32, parents, children []int32, command string, data [][]byte,
	comment, framework, frameworkVersion string, typ proto.DependencyType,
	parentDependencies []int32, nowMs int64,
) *Dependency {
	d := &Dependency{
		Id:                 id,
		ParentFiles:        parents,
		ChildrenFiles:      children,
		Command:            command,
		Data:               data,
		Comment:            comment,
		Framework:          framework,
		FrameworkVersion:   frameworkVersion,
		Type:               typ,
		CreationTimeMs:     nowMs,
		ParentDependencies: parentDependencies,
		UnfinishedChildren: make(map[int32]struct{}, len(children)),
		LostFiles:          make(map[int32]struct{}),
	}
	for _, child := range children {
		d.UnfinishedChildren[child] = struct{}{}
	}
	return d
}

// ChildCheckpointed marks one child file as durably checkpointed.
func (d *Dependency) ChildCheckpointed(fileId int32) {
	delete(d.UnfinishedChildren, fileId)
}

// HasCheckpointed reports whether every child is checkpointed.
func (d *Dependency) HasCheckpointed() bool {
	return len(d.UnfinishedChildren) == 0
}

func (d *Dependency) AddChildDependency(depId int32) {
	for _, id := range d.ChildrenDependencies {
		if id == depId {
			return
		}
	}
	d.ChildrenDependencies = append(d.ChildrenDependencies, depId)
}

func (d *Dependency) HasChildrenDependency() bool {
	return len(d.ChildrenDependencies) > 0
}

func (d *Dependency) AddLostFile(fileId int32) {
	d.LostFiles[fileId] = struct{}{}
}

func (d *Dependency) LostFileIds() []int32 {
	ids := make([]int32, 0, len(d.LostFiles))
	for id := range d.LostFiles {
		ids = append(ids, id)
	}
	return ids
}

func (d *Dependency) ToDependencyInfo() *proto.DependencyInfo {
	info := &proto.DependencyInfo{
		Id:       d.Id,
		Parents:  make([]int32, len(d.ParentFiles)),
		Children: make([]int32, len(d.ChildrenFiles)),
		Data:     d.Data,
	}
	copy(info.Parents, d.ParentFiles)
	copy(info.Children, d.ChildrenFiles)
	return info
}
