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

package errors

import (
	"errors"
	"net/http"

	"github.com/cubefs/cubefs/blobstore/common/rpc"
)

// Caller errors carry an HTTP status so the rpc layer can respond
// without per-handler mapping.
var (
	ErrInvalidPath        = rpc.NewError(http.StatusBadRequest, "InvalidPath", errors.New("invalid path"))
	ErrFileAlreadyExists  = rpc.NewError(http.StatusConflict, "FileAlreadyExists", errors.New("file already exists"))
	ErrFileDoesNotExist   = rpc.NewError(http.StatusNotFound, "FileDoesNotExist", errors.New("file does not exist"))
	ErrTableColumn        = rpc.NewError(http.StatusBadRequest, "TableColumn", errors.New("invalid table column count"))
	ErrTableDoesNotExist  = rpc.NewError(http.StatusNotFound, "TableDoesNotExist", errors.New("table does not exist"))
	ErrDependencyNotExist = rpc.NewError(http.StatusNotFound, "DependencyDoesNotExist", errors.New("dependency does not exist"))
	ErrSuspectedFileSize  = rpc.NewError(http.StatusConflict, "SuspectedFileSize", errors.New("suspected wrong file size"))
	ErrNoLocalWorker      = rpc.NewError(http.StatusNotFound, "NoLocalWorker", errors.New("no local worker"))
)
