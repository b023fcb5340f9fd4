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

package common

const (
	// App is the CLI binary's name.
	App = "rkit-cli"

	// Version is the CLI binary's version.
	Version = "v0.0.1"

	// ReadBufferSize is the socket read buffer size used when reading
	// RESP replies off the wire.
	ReadBufferSize = 64 * 1024
)
