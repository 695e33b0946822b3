// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package cqueue

// RaceEnabled is true when the race detector is active, a build in which
// the cross-variable memory ordering of this package (optimistic/overcommit
// counters, refcounted free-list nodes) is not observed as synchronized.
// No test in this package reads it.
const RaceEnabled = true
