// Package signal provides the immutable data model exchanged by pipeline steps.
//
// A TimeSeries couples N timestamps with an N×D value matrix and a few descriptive tags. Every
// transformation produces a new instance; nothing in this package mutates a series after it has
// been built. ChunkedTimeSeries splits a base series into equal, non-overlapping spans and hands
// out lightweight views over them.
//
// All the values a workspace can hold implement Artifact, a one-method interface that tells the
// variant apart: time series, chunked series, numeric arrays, scalars and chunk pairs.
package signal
