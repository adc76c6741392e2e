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

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cubefs/cubefs/blobstore/common/config"
	"github.com/cubefs/cubefs/blobstore/common/profile"
	"github.com/cubefs/cubefs/blobstore/common/rpc"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/cubefs/cubefs/blobstore/util/log"
	_ "github.com/cubefs/cubefs/blobstore/util/version"
	"github.com/tachyonfs/tachyon/server"
	"github.com/tachyonfs/tachyon/util"
)

// Config service config
type Config struct {
	server.Config

	BindPort int       `json:"bind_port"`
	LogLevel log.Level `json:"log_level"`
}

func main() {
	config.Init("f", "", "master.json")

	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		log.Fatal(errors.Detail(err))
	}

	initConfig(cfg)
	registerLogLevel()
	log.SetOutputLevel(cfg.LogLevel)

	startServer, err := server.NewServer(context.Background(), &cfg.Config)
	if err != nil {
		log.Fatal(errors.Detail(err))
	}
	httpServer := server.NewHttpServer(startServer)
	httpServer.Serve(":" + strconv.Itoa(cfg.BindPort))

	// wait for signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
	<-ch

	httpServer.Stop()
	startServer.Close()
}

func registerLogLevel() {
	logLevelPath, logLevelHandler := log.ChangeDefaultLevelHandler()
	profile.HandleFunc(http.MethodPost, logLevelPath, func(c *rpc.Context) {
		logLevelHandler.ServeHTTP(c.Writer, c.Request)
	})
	profile.HandleFunc(http.MethodGet, logLevelPath, func(c *rpc.Context) {
		logLevelHandler.ServeHTTP(c.Writer, c.Request)
	})
}

func initConfig(cfg *Config) {
	if cfg.BindPort == 0 {
		cfg.BindPort = 19998
	}
	if cfg.MasterConfig.Home == "" {
		cfg.MasterConfig.Home = "./run"
	}
	if cfg.MasterConfig.Address.Host == "" {
		host, err := util.GetLocalIP()
		if err != nil {
			log.Fatalf("can't get local ip address, please set the master address in the config")
		}
		cfg.MasterConfig.Address.Host = host
	}
	if cfg.MasterConfig.Address.Port == 0 {
		cfg.MasterConfig.Address.Port = int32(cfg.BindPort)
	}
}
