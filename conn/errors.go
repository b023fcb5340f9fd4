// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conn

import "github.com/pkg/errors"

// ErrClosed is returned by Query/Run when the connection has been
// permanently closed via Close.
var ErrClosed = errors.New("conn: connection closed")

// ErrEmptyCommand is returned by Query when the given Command has no
// parts (neither built nor pending).
var ErrEmptyCommand = errors.New("conn: command has no parts")
