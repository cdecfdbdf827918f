// Package cycle drives the archival poll loop.
//
// One cycle scans the flag directory, prepares today's archive directory,
// then archives and reaps each completed job in lexical order. The loop
// sleeps a fixed interval between cycles. Jobs are isolated: a failure is
// recorded against that job and the next job proceeds. A job that started
// runs to completion even when the parent context is cancelled; cancellation
// is observed between jobs and while sleeping.
//
// State transitions follow Idle -> Scanning -> Archiving -> Reaping -> Idle.
// Clock, sleep and filesystem operations are injectable for tests.
package cycle
