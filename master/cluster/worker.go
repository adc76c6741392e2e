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
	"github.com/tachyonfs/tachyon/proto"
)

// workerInfo is the registry's record of one live worker. Mutated only
// under the cluster lock.
type workerInfo struct {
	Id            int64
	Address       proto.NetAddress
	CapacityBytes int64
	UsedBytes     int64
	Files         map[int32]struct{}
	LastUpdatedMs int64
}

func newWorkerInfo(id int64, addr proto.NetAddress, capacityBytes int64) *workerInfo {
	return &workerInfo{
		Id:            id,
		Address:       addr,
		CapacityBytes: capacityBytes,
		Files:         make(map[int32]struct{}),
	}
}

func (w *workerInfo) updateFile(add bool, fileId int32) {
	if add {
		w.Files[fileId] = struct{}{}
	} else {
		delete(w.Files, fileId)
	}
}

func (w *workerInfo) updateFiles(add bool, fileIds []int32) {
	for _, id := range fileIds {
		w.updateFile(add, id)
	}
}

func (w *workerInfo) fileIds() []int32 {
	ids := make([]int32, 0, len(w.Files))
	for id := range w.Files {
		ids = append(ids, id)
	}
	return ids
}

func (w *workerInfo) touch(nowMs int64) {
	w.LastUpdatedMs = nowMs
}

func (w *workerInfo) toProtoWorker(nowMs int64) *proto.WorkerInfo {
	return &proto.WorkerInfo{
		Id:             w.Id,
		Address:        w.Address,
		LastContactSec: int32((nowMs - w.LastUpdatedMs) / 1000),
		State:          "In Service",
		CapacityBytes:  w.CapacityBytes,
		UsedBytes:      w.UsedBytes,
	}
}

// LostWorker is a dead worker handed to cleanup: its id, address and
// the set of files it held when it was declared lost.
type LostWorker struct {
	Id      int64
	Address proto.NetAddress
	Files   []int32
}
