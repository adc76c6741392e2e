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

package namespace

import (
	"github.com/tachyonfs/tachyon/proto"
)

const (
	// RootId is fixed for the life of a namespace; the root is never deleted.
	RootId = int32(1)

	// ColumnPrefix names the per-column child folders of a raw table.
	ColumnPrefix = "COL_"
)

type InodeType uint8

const (
	TypeFile InodeType = iota + 1
	TypeFolder
	TypeRawTable
)

// Inode is the tagged union of file, folder and raw table metadata.
// Identity (Id) is immutable; a tombstone is the same record with the
// id negated. Only the fields of the tagged variant are meaningful.
type Inode struct {
	Type           InodeType `json:"type"`
	Id             int32     `json:"id"`
	Name           string    `json:"name"`
	ParentId       int32     `json:"parent_id"`
	CreationTimeMs int64     `json:"creation_time_ms"`

	// Folder and RawTable: child name -> inode id. Names are unique
	// within a folder.
	Children map[string]int32 `json:"children,omitempty"`

	// RawTable only.
	Columns  int32  `json:"columns,omitempty"`
	Metadata []byte `json:"metadata,omitempty"`

	// File only. Length stays -1 until the file is first sized and is
	// immutable once Ready.
	Length         int64                      `json:"length"`
	Ready          bool                       `json:"ready"`
	CheckpointPath string                     `json:"checkpoint_path"`
	DependencyId   int32                      `json:"dependency_id"`
	Pin            bool                       `json:"pin"`
	Cache          bool                       `json:"cache"`
	Locations      map[int64]proto.NetAddress `json:"locations,omitempty"`
}

func NewFile(name string, id, parentId int32, creationTimeMs int64) *Inode {
	return &Inode{
		Type:           TypeFile,
		Id:             id,
		Name:           name,
		ParentId:       parentId,
		CreationTimeMs: creationTimeMs,
		Length:         -1,
		DependencyId:   -1,
		Locations:      make(map[int64]proto.NetAddress),
	}
}

func NewFolder(name string, id, parentId int32, creationTimeMs int64) *Inode {
	return &Inode{
		Type:           TypeFolder,
		Id:             id,
		Name:           name,
		ParentId:       parentId,
		CreationTimeMs: creationTimeMs,
		Children:       make(map[string]int32),
	}
}

func NewRawTable(name string, id, parentId int32, columns int32, metadata []byte, creationTimeMs int64) *Inode {
	return &Inode{
		Type:           TypeRawTable,
		Id:             id,
		Name:           name,
		ParentId:       parentId,
		CreationTimeMs: creationTimeMs,
		Children:       make(map[string]int32),
		Columns:        columns,
		Metadata:       metadata,
	}
}

func (i *Inode) IsFile() bool {
	return i.Type == TypeFile
}

func (i *Inode) IsDirectory() bool {
	return i.Type == TypeFolder || i.Type == TypeRawTable
}

func (i *Inode) IsRawTable() bool {
	return i.Type == TypeRawTable
}

// Tombstoned reports whether this is a deletion record.
func (i *Inode) Tombstoned() bool {
	return i.Id < 0
}

// Reverse flips the id sign, marking the inode as a tombstone.
func (i *Inode) Reverse() {
	i.Id = -i.Id
}

func (i *Inode) AddChild(name string, id int32) {
	i.Children[name] = id
}

func (i *Inode) RemoveChild(name string) {
	delete(i.Children, name)
}

func (i *Inode) Child(name string) (int32, bool) {
	id, ok := i.Children[name]
	return id, ok
}

func (i *Inode) ChildrenIds() []int32 {
	ids := make([]int32, 0, len(i.Children))
	for _, id := range i.Children {
		ids = append(ids, id)
	}
	return ids
}

// InMemory is derived: a file is in memory iff any location exists.
func (i *Inode) InMemory() bool {
	return len(i.Locations) > 0
}

func (i *Inode) HasCheckpointed() bool {
	return i.CheckpointPath != ""
}

func (i *Inode) AddLocation(workerId int64, addr proto.NetAddress) {
	i.Locations[workerId] = addr
}

func (i *Inode) RemoveLocation(workerId int64) {
	delete(i.Locations, workerId)
}

func (i *Inode) LocationList() []proto.NetAddress {
	ret := make([]proto.NetAddress, 0, len(i.Locations))
	for _, addr := range i.Locations {
		ret = append(ret, addr)
	}
	return ret
}

// SetLength sizes the file for the first time and marks it ready.
func (i *Inode) SetLength(length int64) {
	i.Length = length
	i.Ready = true
}
