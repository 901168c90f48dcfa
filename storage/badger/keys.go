// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import "strings"

const blobPrefix = "blob:"

// makeBlobKey generates the badger key for a blob.
func makeBlobKey(key string) []byte {
	return []byte(blobPrefix + key)
}

// blobName strips the storage prefix from a badger key.
func blobName(raw []byte) string {
	return strings.TrimPrefix(string(raw), blobPrefix)
}
