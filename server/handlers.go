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

package server

import (
	"github.com/cubefs/cubefs/blobstore/common/rpc"
	"github.com/tachyonfs/tachyon/proto"
)

type CreateFileArgs struct {
	Path      string `json:"path"`
	Directory bool   `json:"directory"`
	Recursive bool   `json:"recursive"`
}

type CreateRawTableArgs struct {
	Path     string `json:"path"`
	Columns  int32  `json:"columns"`
	Metadata []byte `json:"metadata"`
}

type DeleteArgs struct {
	Path string `json:"path"`
	Id   int32  `json:"id"`
}

type RenameArgs struct {
	SrcPath string `json:"src_path"`
	DstPath string `json:"dst_path"`
}

type PathArgs struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

type IdOrPathArgs struct {
	Id   int32  `json:"id"`
	Path string `json:"path"`
}

type FileIdArgs struct {
	FileId int32 `json:"file_id"`
}

type GetWorkerArgs struct {
	Random bool   `json:"random"`
	Host   string `json:"host"`
}

type CreateDependencyArgs struct {
	Parents          []string             `json:"parents"`
	Children         []string             `json:"children"`
	CommandPrefix    string               `json:"command_prefix"`
	Data             [][]byte             `json:"data"`
	Comment          string               `json:"comment"`
	Framework        string               `json:"framework"`
	FrameworkVersion string               `json:"framework_version"`
	Type             proto.DependencyType `json:"type"`
}

type DependencyIdArgs struct {
	DependencyId int32 `json:"dependency_id"`
}

type RegisterWorkerArgs struct {
	Address        proto.NetAddress `json:"address"`
	CapacityBytes  int64            `json:"capacity_bytes"`
	UsedBytes      int64            `json:"used_bytes"`
	CurrentFileIds []int32          `json:"current_file_ids"`
}

type WorkerHeartbeatArgs struct {
	WorkerId       int64   `json:"worker_id"`
	UsedBytes      int64   `json:"used_bytes"`
	RemovedFileIds []int32 `json:"removed_file_ids"`
}

type CachedFileArgs struct {
	WorkerId  int64 `json:"worker_id"`
	UsedBytes int64 `json:"used_bytes"`
	FileId    int32 `json:"file_id"`
	SizeBytes int64 `json:"size_bytes"`
}

type AddCheckpointArgs struct {
	WorkerId       int64  `json:"worker_id"`
	FileId         int32  `json:"file_id"`
	SizeBytes      int64  `json:"size_bytes"`
	CheckpointPath string `json:"checkpoint_path"`
}

type IdRet struct {
	Id int32 `json:"id"`
}

type StatsRet struct {
	MasterAddress proto.NetAddress    `json:"master_address"`
	StartTimeMs   int64               `json:"start_time_ms"`
	CapacityBytes int64               `json:"capacity_bytes"`
	UsedBytes     int64               `json:"used_bytes"`
	WorkerCount   int                 `json:"worker_count"`
	Workers       []*proto.WorkerInfo `json:"workers"`
}

func (s *Server) CreateFile(c *rpc.Context) {
	args := new(CreateFileArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	id, err := s.master.CreateFile(c.Request.Context(), args.Path, args.Directory, args.Recursive)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(IdRet{Id: id})
}

func (s *Server) CreateRawTable(c *rpc.Context) {
	args := new(CreateRawTableArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	id, err := s.master.CreateRawTable(c.Request.Context(), args.Path, args.Columns, args.Metadata)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(IdRet{Id: id})
}

func (s *Server) Delete(c *rpc.Context) {
	args := new(DeleteArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	var err error
	if args.Path != "" {
		err = s.master.Delete(c.Request.Context(), args.Path)
	} else {
		err = s.master.DeleteId(c.Request.Context(), args.Id)
	}
	if err != nil {
		c.RespondError(err)
		return
	}
	c.Respond()
}

func (s *Server) Rename(c *rpc.Context) {
	args := new(RenameArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	if err := s.master.Rename(c.Request.Context(), args.SrcPath, args.DstPath); err != nil {
		c.RespondError(err)
		return
	}
	c.Respond()
}

func (s *Server) UnpinFile(c *rpc.Context) {
	args := new(FileIdArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	if err := s.master.UnpinFile(c.Request.Context(), args.FileId); err != nil {
		c.RespondError(err)
		return
	}
	c.Respond()
}

func (s *Server) GetFileId(c *rpc.Context) {
	args := new(PathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	id, err := s.master.GetFileId(c.Request.Context(), args.Path)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(IdRet{Id: id})
}

func (s *Server) GetFileInfo(c *rpc.Context) {
	args := new(IdOrPathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	var (
		info *proto.FileInfo
		err  error
	)
	if args.Path != "" {
		info, err = s.master.GetFileInfoByPath(c.Request.Context(), args.Path)
	} else {
		info, err = s.master.GetFileInfo(c.Request.Context(), args.Id)
	}
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(info)
}

func (s *Server) GetFilesInfo(c *rpc.Context) {
	args := new(PathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	infos, err := s.master.GetFilesInfo(c.Request.Context(), args.Path)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(infos)
}

func (s *Server) GetFileLocations(c *rpc.Context) {
	args := new(IdOrPathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	var (
		locations []proto.NetAddress
		err       error
	)
	if args.Path != "" {
		locations, err = s.master.GetFileLocationsByPath(c.Request.Context(), args.Path)
	} else {
		locations, err = s.master.GetFileLocations(c.Request.Context(), args.Id)
	}
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(locations)
}

func (s *Server) ListFiles(c *rpc.Context) {
	args := new(PathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	ids, err := s.master.ListFiles(c.Request.Context(), args.Path, args.Recursive)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(ids)
}

func (s *Server) Ls(c *rpc.Context) {
	args := new(PathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	paths, err := s.master.Ls(c.Request.Context(), args.Path, args.Recursive)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(paths)
}

func (s *Server) GetNumberOfFiles(c *rpc.Context) {
	args := new(PathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	n, err := s.master.GetNumberOfFiles(c.Request.Context(), args.Path)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(n)
}

func (s *Server) GetInMemoryFiles(c *rpc.Context) {
	c.RespondJSON(s.master.GetInMemoryFiles(c.Request.Context()))
}

func (s *Server) GetRawTableId(c *rpc.Context) {
	args := new(PathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	id, err := s.master.GetRawTableId(c.Request.Context(), args.Path)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(IdRet{Id: id})
}

func (s *Server) GetRawTableInfo(c *rpc.Context) {
	args := new(IdOrPathArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	var (
		info *proto.RawTableInfo
		err  error
	)
	if args.Path != "" {
		info, err = s.master.GetRawTableInfoByPath(c.Request.Context(), args.Path)
	} else {
		info, err = s.master.GetRawTableInfo(c.Request.Context(), args.Id)
	}
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(info)
}

func (s *Server) GetPinList(c *rpc.Context) {
	c.RespondJSON(s.master.GetPinList(c.Request.Context()))
}

func (s *Server) GetWhiteList(c *rpc.Context) {
	c.RespondJSON(s.master.GetWhiteList(c.Request.Context()))
}

func (s *Server) GetPinIdList(c *rpc.Context) {
	c.RespondJSON(s.master.GetPinIdList(c.Request.Context()))
}

func (s *Server) GetNewUserId(c *rpc.Context) {
	c.RespondJSON(s.master.GetNewUserId())
}

func (s *Server) CreateDependency(c *rpc.Context) {
	args := new(CreateDependencyArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	id, err := s.master.CreateDependency(c.Request.Context(), args.Parents, args.Children,
		args.CommandPrefix, args.Data, args.Comment, args.Framework, args.FrameworkVersion, args.Type)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(IdRet{Id: id})
}

func (s *Server) GetClientDependencyInfo(c *rpc.Context) {
	args := new(DependencyIdArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	info, err := s.master.GetClientDependencyInfo(c.Request.Context(), args.DependencyId)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(info)
}

func (s *Server) GetPriorityDependencyList(c *rpc.Context) {
	c.RespondJSON(s.master.GetPriorityDependencyList(c.Request.Context()))
}

func (s *Server) ReportLostFile(c *rpc.Context) {
	args := new(FileIdArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	s.master.ReportLostFile(c.Request.Context(), args.FileId)
	c.Respond()
}

func (s *Server) GetWorker(c *rpc.Context) {
	args := new(GetWorkerArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	addr, err := s.master.GetWorker(c.Request.Context(), args.Random, args.Host)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(addr)
}

func (s *Server) Stats(c *rpc.Context) {
	c.RespondJSON(StatsRet{
		MasterAddress: s.master.MasterAddress(),
		StartTimeMs:   s.master.StartTimeMs(),
		CapacityBytes: s.master.GetCapacityBytes(),
		UsedBytes:     s.master.GetUsedBytes(),
		WorkerCount:   s.master.GetWorkerCount(),
		Workers:       s.master.GetWorkersInfo(),
	})
}

func (s *Server) RegisterWorker(c *rpc.Context) {
	args := new(RegisterWorkerArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	workerId := s.master.RegisterWorker(c.Request.Context(), args.Address,
		args.CapacityBytes, args.UsedBytes, args.CurrentFileIds)
	c.RespondJSON(workerId)
}

func (s *Server) WorkerHeartbeat(c *rpc.Context) {
	args := new(WorkerHeartbeatArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	cmd := s.master.WorkerHeartbeat(c.Request.Context(), args.WorkerId, args.UsedBytes, args.RemovedFileIds)
	c.RespondJSON(cmd)
}

func (s *Server) CachedFile(c *rpc.Context) {
	args := new(CachedFileArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	depId, err := s.master.CachedFile(c.Request.Context(), args.WorkerId, args.UsedBytes, args.FileId, args.SizeBytes)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(IdRet{Id: depId})
}

func (s *Server) AddCheckpoint(c *rpc.Context) {
	args := new(AddCheckpointArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	ok, err := s.master.AddCheckpoint(c.Request.Context(), args.WorkerId, args.FileId, args.SizeBytes, args.CheckpointPath)
	if err != nil {
		c.RespondError(err)
		return
	}
	c.RespondJSON(ok)
}
