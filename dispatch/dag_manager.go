package dispatch

import "github.com/pkg/errors"

type DAGManager interface {
	AddNode(name string, dependencies []string)
	ExecutionOrder(roots ...string) ([]string, error)
}

type dagManager struct {
	graph map[string][]string
}

func NewDAGManager() DAGManager {
	return &dagManager{
		graph: make(map[string][]string),
	}
}

func (dm *dagManager) AddNode(name string, dependencies []string) {
	dm.graph[name] = dependencies
}

// ExecutionOrder returns the requested targets and their transitive
// dependencies, dependencies first. Each target appears once even when
// reachable through several roots.
func (dm *dagManager) ExecutionOrder(roots ...string) ([]string, error) {
	const (
		unvisited = iota
		visiting
		finished
	)

	state := make(map[string]int)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		switch state[name] {
		case finished:
			return nil
		case visiting:
			return errors.Errorf("dependency cycle detected through target %s", name)
		}
		state[name] = visiting

		for _, dep := range dm.graph[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}

		state[name] = finished
		order = append(order, name)
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}

	return order, nil
}
