package config

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bsmithyman/galoshes/target"
	"github.com/pkg/errors"
	"go.starlark.net/starlark"
	"golang.org/x/exp/slices"
)

// ModuleCache is used to store loaded Starlark modules
type ModuleCache struct {
	modules map[string]starlark.StringDict
	mutex   sync.RWMutex
}

// NewModuleCache creates a new ModuleCache
func NewModuleCache() *ModuleCache {
	return &ModuleCache{
		modules: make(map[string]starlark.StringDict),
	}
}

// Get retrieves a module from the cache
func (mc *ModuleCache) Get(key string) (starlark.StringDict, bool) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	module, ok := mc.modules[key]
	return module, ok
}

// Set stores a module in the cache
func (mc *ModuleCache) Set(key string, module starlark.StringDict) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.modules[key] = module
}

// LoadModule is a custom load function for Starlark that implements caching
func LoadModule(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	cache := thread.Local("moduleCache").(*ModuleCache)

	if cachedModule, ok := cache.Get(module); ok {
		return cachedModule, nil
	}

	filename := module
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(filepath.Dir(thread.Name), filename)
	}

	globals, err := starlark.ExecFile(thread, filename, nil, nil)
	if err != nil {
		return nil, err
	}

	cache.Set(module, globals)

	return globals, nil
}

// ParseWorkflowConfig loads the Starlark declaration file and returns the
// declared targets, with the phony marker set applied and validated.
func ParseWorkflowConfig(filename string) (map[string]*target.Target, error) {
	cache := NewModuleCache()
	thread := &starlark.Thread{
		Name: filename,
		Load: LoadModule,
	}
	thread.SetLocal("moduleCache", cache)

	globals, err := starlark.ExecFile(thread, filename, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Starlark config")
	}

	targetsValue, ok := globals["targets"]
	if !ok {
		return nil, errors.New("global 'targets' object not found in Starlark config")
	}

	targetsDict, ok := targetsValue.(*starlark.Dict)
	if !ok {
		return nil, errors.New("global 'targets' object is not a dictionary")
	}

	targets := make(map[string]*target.Target)

	for _, item := range targetsDict.Items() {
		nameValue, ok := item.Index(0).(starlark.String)
		if !ok {
			return nil, errors.Errorf("target names must be strings, got %s", item.Index(0).Type())
		}
		name := nameValue.GoString()

		dict, ok := item.Index(1).(*starlark.Dict)
		if !ok {
			return nil, errors.Errorf("target %s must be declared as a dictionary", name)
		}

		t, err := parseTarget(name, dict)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse target %s", name)
		}

		targets[name] = t
	}

	if err := applyPhonyList(globals, targets); err != nil {
		return nil, err
	}

	if err := validateDeclarations(targets); err != nil {
		return nil, err
	}

	return targets, nil
}

func parseTarget(name string, dict *starlark.Dict) (*target.Target, error) {
	if err := validateTargetDict(name, dict); err != nil {
		return nil, err
	}

	t := &target.Target{Name: name}

	if cmds, ok, err := getStringList(dict, "cmds"); err != nil {
		return nil, err
	} else if ok {
		t.Cmds = cmds
	}

	if description, ok, err := getStringValue(dict, "description"); err != nil {
		return nil, err
	} else if ok {
		t.Description = description
	}

	if deps, ok, err := getStringList(dict, "deps"); err != nil {
		return nil, err
	} else if ok {
		t.TargetDeps = deps
	}

	if inputs, ok, err := getStringList(dict, "inputs"); err != nil {
		return nil, err
	} else if ok {
		t.Inputs = inputs
	}

	if outputs, ok, err := getStringList(dict, "outputs"); err != nil {
		return nil, err
	} else if ok {
		t.Outputs = outputs
	}

	if index, ok, err := getStringValue(dict, "index"); err != nil {
		return nil, err
	} else if ok {
		t.Index = index
	}

	if version, ok, err := getStringValue(dict, "version"); err != nil {
		return nil, err
	} else if ok {
		t.Version = version
	}

	if len(t.Cmds) == 0 {
		return nil, errors.Errorf("target %s declares no commands", name)
	}

	inputHash, err := calculateInputHash(t.Inputs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to calculate input hash")
	}
	t.InputHash = inputHash

	return t, nil
}

func applyPhonyList(globals starlark.StringDict, targets map[string]*target.Target) error {
	phonyValue, ok := globals["phony"]
	if !ok {
		return nil
	}

	list, ok := phonyValue.(*starlark.List)
	if !ok {
		return errors.Errorf("global 'phony' object is not a list, got %s", phonyValue.Type())
	}

	iter := list.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		str, ok := x.(starlark.String)
		if !ok {
			return errors.Errorf("phony entries must be strings, got %s", x.Type())
		}
		name := str.GoString()
		t, declared := targets[name]
		if !declared {
			return errors.Errorf("phony list names undeclared target %q", name)
		}
		t.Phony = true
	}

	return nil
}

func validateDeclarations(targets map[string]*target.Target) error {
	for _, t := range targets {
		if t.Phony && len(t.Outputs) > 0 {
			return errors.Errorf("phony target %s may not declare outputs", t.Name)
		}
		for _, dep := range t.TargetDeps {
			if _, declared := targets[dep]; !declared {
				return errors.Errorf("target %s depends on undeclared target %q", t.Name, dep)
			}
		}
	}
	return nil
}

// calculateInputHash fingerprints the content of every file matched by
// the input glob patterns. Matches are sorted so the hash is stable
// across runs.
func calculateInputHash(inputs []string) (string, error) {
	h := sha256.New()
	for _, pattern := range inputs {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return "", errors.Wrapf(err, "failed to expand input pattern %s", pattern)
		}
		slices.Sort(matches)
		for _, match := range matches {
			content, err := os.ReadFile(match)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				info, statErr := os.Stat(match)
				if statErr == nil && info.IsDir() {
					continue
				}
				return "", errors.Wrapf(err, "failed to read input file %s", match)
			}
			h.Write([]byte(match))
			h.Write(content)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
