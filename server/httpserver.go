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
	"context"
	"net/http"
	"time"

	"github.com/cubefs/cubefs/blobstore/common/profile"
	"github.com/cubefs/cubefs/blobstore/common/rpc"
	"github.com/cubefs/cubefs/blobstore/util/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tachyonfs/tachyon/metrics"
)

const (
	defaultShutdownTimeoutS      = 10
	defaultReadRequestTimeoutS   = 30
	defaultWriteResponseTimeoutS = 30
)

type HttpServer struct {
	httpServer *http.Server

	*Server
}

func NewHttpServer(server *Server) *HttpServer {
	return &HttpServer{Server: server}
}

func (h *HttpServer) Serve(addr string) {
	ph := profile.NewProfileHandler(addr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/", rpc.MiddlewareHandlerWith(h.newHandler(), ph))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  defaultReadRequestTimeoutS * time.Second,
		WriteTimeout: defaultWriteResponseTimeoutS * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server exits:", err)
		}
	}()
	h.httpServer = httpServer

	log.Info("http server is running at:", addr)
}

func (h *HttpServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeoutS*time.Second)
	defer cancel()

	h.httpServer.Shutdown(ctx)
}

func (h *HttpServer) newHandler() *rpc.Router {
	// client calls
	rpc.POST("/file/create", h.CreateFile, rpc.OptArgsBody())
	rpc.POST("/rawtable/create", h.CreateRawTable, rpc.OptArgsBody())
	rpc.POST("/file/delete", h.Delete, rpc.OptArgsBody())
	rpc.POST("/file/rename", h.Rename, rpc.OptArgsBody())
	rpc.POST("/file/unpin", h.UnpinFile, rpc.OptArgsBody())
	rpc.GET("/file/id", h.GetFileId, rpc.OptArgsQuery())
	rpc.GET("/file/info", h.GetFileInfo, rpc.OptArgsQuery())
	rpc.GET("/file/locations", h.GetFileLocations, rpc.OptArgsQuery())
	rpc.GET("/files/info", h.GetFilesInfo, rpc.OptArgsQuery())
	rpc.GET("/files/list", h.ListFiles, rpc.OptArgsQuery())
	rpc.GET("/files/ls", h.Ls, rpc.OptArgsQuery())
	rpc.GET("/files/count", h.GetNumberOfFiles, rpc.OptArgsQuery())
	rpc.GET("/files/inmemory", h.GetInMemoryFiles)
	rpc.GET("/rawtable/id", h.GetRawTableId, rpc.OptArgsQuery())
	rpc.GET("/rawtable/info", h.GetRawTableInfo, rpc.OptArgsQuery())
	rpc.GET("/pinlist", h.GetPinList)
	rpc.GET("/whitelist", h.GetWhiteList)
	rpc.GET("/pinidlist", h.GetPinIdList)
	rpc.POST("/user/id", h.GetNewUserId)
	rpc.POST("/dependency/create", h.CreateDependency, rpc.OptArgsBody())
	rpc.GET("/dependency/info", h.GetClientDependencyInfo, rpc.OptArgsQuery())
	rpc.GET("/dependency/priority", h.GetPriorityDependencyList)
	rpc.POST("/file/lost", h.ReportLostFile, rpc.OptArgsBody())
	rpc.GET("/worker/get", h.GetWorker, rpc.OptArgsQuery())
	rpc.GET("/stats", h.Stats)

	// worker calls
	rpc.POST("/worker/register", h.RegisterWorker, rpc.OptArgsBody())
	rpc.POST("/worker/heartbeat", h.WorkerHeartbeat, rpc.OptArgsBody())
	rpc.POST("/worker/cachedfile", h.CachedFile, rpc.OptArgsBody())
	rpc.POST("/worker/checkpoint", h.AddCheckpoint, rpc.OptArgsBody())

	return rpc.DefaultRouter
}
