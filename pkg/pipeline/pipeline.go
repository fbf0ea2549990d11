package pipeline

import (
	"slices"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// Pipeline is an ordered list of steps plus the dependency graph between them.
type Pipeline struct {
	steps   []*Step
	graph   graph.Graph[string, string]
	parents [][]int
	sources []string
}

// New assembles steps in the given order. Each input produced by an earlier step becomes an edge
// from the producer to the consumer; inputs no step produces are sources the caller must provide.
func New(steps ...*Step) (*Pipeline, error) {
	pipe := &Pipeline{
		steps:   slices.Clone(steps),
		graph:   graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
		parents: make([][]int, len(steps)),
	}

	producers := make(map[string]int)
	for idx, step := range steps {
		if step == nil {
			return nil, errors.Wrapf(ErrConfiguration, "step %d is nil", idx)
		}

		err := pipe.graph.AddVertex(step.name)
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, errors.Wrapf(ErrConfiguration, "duplicate step name %s", step.name)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add step %s", step.name)
		}

		for _, key := range step.outputs {
			if other, ok := producers[key]; ok {
				return nil, errors.Wrapf(ErrConfiguration, "%s is produced by %s and %s",
					key, steps[other].name, step.name)
			}
			producers[key] = idx
		}
	}

	sources := make(map[string]struct{})
	for idx, step := range steps {
		keysByParent := make(map[int][]string)
		for _, key := range step.inputs {
			producer, ok := producers[key]
			if !ok {
				sources[key] = struct{}{}

				continue
			}
			keysByParent[producer] = append(keysByParent[producer], key)
		}

		for producer, keys := range keysByParent {
			err := pipe.graph.AddEdge(steps[producer].name, step.name,
				graph.EdgeAttribute("keys", strings.Join(keys, ",")))
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return nil, errors.Wrapf(ErrConfiguration, "%s and %s depend on each other", steps[producer].name, step.name)
			}
			if err != nil {
				return nil, errors.Wrapf(err, "unable to link %s to %s", steps[producer].name, step.name)
			}
			pipe.parents[idx] = append(pipe.parents[idx], producer)
		}
		slices.Sort(pipe.parents[idx])
	}

	for idx, step := range steps {
		for _, parent := range pipe.parents[idx] {
			if parent > idx {
				return nil, errors.Wrapf(ErrConfiguration, "step %s reads output of later step %s",
					step.name, steps[parent].name)
			}
		}
	}

	for key := range sources {
		pipe.sources = append(pipe.sources, key)
	}
	slices.Sort(pipe.sources)

	return pipe, nil
}

// Steps returns the steps in execution order.
func (p *Pipeline) Steps() []*Step {
	return slices.Clone(p.steps)
}

// Sources returns the keys the workspace must hold before the run, sorted.
func (p *Pipeline) Sources() []string {
	return slices.Clone(p.sources)
}

// Parents returns the indexes of the steps producing an input of step idx, in ascending order.
func (p *Pipeline) Parents(idx int) []int {
	return slices.Clone(p.parents[idx])
}

// Graph exposes the dependency graph. Vertices are step names.
func (p *Pipeline) Graph() graph.Graph[string, string] {
	return p.graph
}
