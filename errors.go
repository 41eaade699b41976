// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hpq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates Dequeue found the queue empty.
//
// An empty queue is the expected steady state of an idle consumer, not
// a failure. The caller should poll again (with backoff or yield) rather
// than propagating the error. Enqueue never returns ErrWouldBlock: the
// queue is unbounded.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    elem, err := h.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        process(elem)
//	        continue
//	    }
//	    if hpq.IsWouldBlock(err) {
//	        backoff.Wait() // Idle; poll again
//	        continue
//	    }
//	    return err // Unexpected error
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrMaxHandles indicates the hazard table has no unclaimed rows left.
//
// The table capacity is fixed at queue creation and rows are never
// returned, so this is a hard ceiling: a later Handle call succeeds only
// if the table was not actually full at the time of this one. Size
// maxHandles to the worker-goroutine count up front.
var ErrMaxHandles = errors.New("hpq: hazard table at capacity")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, or ErrMore.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
