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

package proto

// Client-visible projections of master metadata.

type FileInfo struct {
	Id             int32  `json:"id"`
	Name           string `json:"name"`
	Path           string `json:"path"`
	CheckpointPath string `json:"checkpoint_path"`
	SizeBytes      int64  `json:"size_bytes"`
	CreationTimeMs int64  `json:"creation_time_ms"`
	InMemory       bool   `json:"in_memory"`
	Ready          bool   `json:"ready"`
	Folder         bool   `json:"folder"`
	NeedPin        bool   `json:"need_pin"`
	NeedCache      bool   `json:"need_cache"`
	DependencyId   int32  `json:"dependency_id"`
}

type RawTableInfo struct {
	Id       int32  `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Columns  int32  `json:"columns"`
	Metadata []byte `json:"metadata"`
}

type DependencyInfo struct {
	Id       int32    `json:"id"`
	Parents  []int32  `json:"parents"`
	Children []int32  `json:"children"`
	Data     [][]byte `json:"data"`
}

type WorkerInfo struct {
	Id             int64      `json:"id"`
	Address        NetAddress `json:"address"`
	LastContactSec int32      `json:"last_contact_sec"`
	State          string     `json:"state"`
	CapacityBytes  int64      `json:"capacity_bytes"`
	UsedBytes      int64      `json:"used_bytes"`
}
