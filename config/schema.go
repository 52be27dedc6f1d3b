package config

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"golang.org/x/exp/slices"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindStringList
)

type fieldSpec struct {
	required bool
	kind     fieldKind
}

// targetFields drives extraction and validation of each target dict.
// Unknown keys are rejected; missing required keys fail the parse.
var targetFields = map[string]fieldSpec{
	"cmds":        {required: true, kind: kindStringList},
	"description": {kind: kindString},
	"deps":        {kind: kindStringList},
	"inputs":      {kind: kindStringList},
	"outputs":     {kind: kindStringList},
	"index":       {kind: kindString},
	"version":     {kind: kindString},
}

func validateTargetDict(name string, dict *starlark.Dict) error {
	for _, key := range dict.Keys() {
		str, ok := key.(starlark.String)
		if !ok {
			return fmt.Errorf("target %s: field names must be strings, got %s", name, key.Type())
		}
		if _, known := targetFields[str.GoString()]; !known {
			fields := append(requiredFields(), optionalFields()...)
			return fmt.Errorf("target %s: unknown field %q (declared fields are %s)",
				name, str.GoString(), strings.Join(fields, ", "))
		}
	}

	for field, spec := range targetFields {
		if !spec.required {
			continue
		}
		if _, found, err := dict.Get(starlark.String(field)); err != nil {
			return err
		} else if !found {
			return fmt.Errorf("target %s requires field %q", name, field)
		}
	}

	return nil
}

func requiredFields() []string {
	var fields []string
	for field, spec := range targetFields {
		if spec.required {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	return fields
}

func optionalFields() []string {
	var fields []string
	for field, spec := range targetFields {
		if !spec.required {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	return fields
}

func getStringValue(dict *starlark.Dict, key string) (string, bool, error) {
	value, found, err := dict.Get(starlark.String(key))
	if err != nil || !found {
		return "", false, err
	}

	strValue, ok := value.(starlark.String)
	if !ok {
		return "", false, fmt.Errorf("expected string for key %s, got %s", key, value.Type())
	}

	return strValue.GoString(), true, nil
}

func getStringList(dict *starlark.Dict, key string) ([]string, bool, error) {
	value, found, err := dict.Get(starlark.String(key))
	if err != nil || !found {
		return nil, false, err
	}

	list, ok := value.(*starlark.List)
	if !ok {
		return nil, false, fmt.Errorf("expected list for key %s, got %s", key, value.Type())
	}

	var result []string
	iter := list.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		str, ok := x.(starlark.String)
		if !ok {
			return nil, false, fmt.Errorf("expected string in list for key %s, got %s", key, x.Type())
		}
		result = append(result, str.GoString())
	}

	return result, true, nil
}
