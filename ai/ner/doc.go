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

// Package ner implements ai.EntityRecognizer on top of any ai.Generator.
//
// The recognizer asks the model to split text into sentences and to list the
// named entities of each sentence as JSON. Malformed replies are repaired where
// possible and re-requested a bounded number of times.
package ner
