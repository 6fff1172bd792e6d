// Package errors provides coded, categorized errors for the livedoc
// preview pipeline.
//
// Every failure mode the pipeline can surface has a stable code (E1xx
// pipeline, E2xx mounts, E3xx cleanup, E4xx server/config). Only server
// and config errors are fatal; everything else is contained within the
// session that produced it.
package errors
