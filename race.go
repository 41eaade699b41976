// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package hpq

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent stress tests: the detector cannot
// track happens-before relationships established through atomix memory
// orderings and reports false positives on node data fields.
const RaceEnabled = true
