// Package model provides the data structures shared by the pipeline runner and its hooks.
// It describes a step as the runner sees it (position, name, declared keys and plots) and
// defines the hook interface the runner calls while it executes a pipeline.
package model
