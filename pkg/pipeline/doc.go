// Package pipeline runs an ordered list of numeric steps over a shared workspace.
//
// A Step declares the workspace keys it reads and writes and carries a pure computation. New
// checks the declarations against each other and builds the dependency graph between steps: an
// edge links the producer of a key to every step reading it. Keys nothing produces are sources
// and must be put in the Workspace before the run.
//
// The Runner executes the steps strictly in the order they were given. For each step it first
// tries to restore the outputs from a cache.Store, then checks the inputs, computes, saves the
// outputs back to the store and hands them to a render.Renderer. A computation only sees a Scope,
// which refuses reads and writes outside the declared keys and buffers outputs until the step
// succeeds.
//
// The first error stops the run. A cached blob that cannot be decoded is not an error: it is
// logged and the step is recomputed. Render failures are logged as well.
//
// Hooks implementing model.PipelineOption observe the run. The measure and drawer packages provide
// per-step timings and a DOT drawing of the dependency graph.
package pipeline
