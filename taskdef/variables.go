// Package taskdef models ECS container definitions as plain Go values.
// This file contains the environment variable merge helpers.
package taskdef

import (
	"fmt"
	"sort"
	"strings"
)

// Variables is the environment contract of one container: plain values and
// secret references share a single name namespace. A name is either plain
// or secret, never both.
type Variables struct {
	// Plain maps variable names to literal values.
	Plain map[string]string
	// Secret maps variable names to valueFrom references (secret ARNs,
	// optionally suffixed with a JSON key for Secrets Manager).
	Secret map[string]string
}

// NewVariables returns an empty, initialized variable set.
func NewVariables() Variables {
	return Variables{
		Plain:  map[string]string{},
		Secret: map[string]string{},
	}
}

// clone copies v so merges never mutate their inputs.
func (v Variables) clone() Variables {
	out := NewVariables()
	for k, val := range v.Plain {
		out.Plain[k] = val
	}
	for k, val := range v.Secret {
		out.Secret[k] = val
	}
	return out
}

// Merge layers override on top of v and returns the result. An override
// wins on conflict regardless of which side of the namespace the base
// entry lived on: overriding a secret with a plain value removes the
// secret entry, and vice versa.
//
// The only validation is name hygiene within the merged namespace: names
// must be non-empty, must not contain '=', and a single override call must
// not supply the same name as both plain and secret.
func (v Variables) Merge(override Variables) (Variables, error) {
	for name := range override.Plain {
		if _, dup := override.Secret[name]; dup {
			return Variables{}, fmt.Errorf("variable %q supplied as both plain and secret", name)
		}
	}
	out := v.clone()
	for name, val := range override.Plain {
		if err := checkName(name); err != nil {
			return Variables{}, err
		}
		out.Plain[name] = val
		delete(out.Secret, name)
	}
	for name, ref := range override.Secret {
		if err := checkName(name); err != nil {
			return Variables{}, err
		}
		if ref == "" {
			return Variables{}, fmt.Errorf("secret variable %q has an empty reference", name)
		}
		out.Secret[name] = ref
		delete(out.Plain, name)
	}
	return out, nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("variable with empty name")
	}
	if strings.Contains(name, "=") {
		return fmt.Errorf("variable name %q contains '='", name)
	}
	return nil
}

// EnvironmentList renders the plain variables as a name-sorted slice, the
// shape containerDefinitions expects.
func (v Variables) EnvironmentList() []KeyValuePair {
	names := make([]string, 0, len(v.Plain))
	for name := range v.Plain {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]KeyValuePair, 0, len(names))
	for _, name := range names {
		out = append(out, KeyValuePair{Name: name, Value: v.Plain[name]})
	}
	return out
}

// SecretList renders the secret variables as a name-sorted slice.
func (v Variables) SecretList() []Secret {
	names := make([]string, 0, len(v.Secret))
	for name := range v.Secret {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Secret, 0, len(names))
	for _, name := range names {
		out = append(out, Secret{Name: name, ValueFrom: v.Secret[name]})
	}
	return out
}
