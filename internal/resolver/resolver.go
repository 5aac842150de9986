package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"policy-shadow-analyzer/internal/model"
)

// CircularDependencyError reports a cycle in address group membership.
// Path holds the resolution chain ending at the repeated name.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf(
		"circular dependency detected in address group resolution: %s",
		strings.Join(e.Path, " -> "),
	)
}

// UnresolvedReferenceError reports a name that is neither a known group or
// object nor parsable as a literal network or range.
type UnresolvedReferenceError struct {
	Name string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unknown address object or group: %q", e.Name)
}

// Resolver expands address reference names (group names, object names or
// raw literals) into concrete address objects, following group membership
// recursively. A Resolver caches fully resolved names for the duration of
// one run; it is not safe for concurrent use.
type Resolver struct {
	objects map[string]model.AddressObject
	groups  map[string][]string
	cache   map[string][]model.AddressObject
	logger  *slog.Logger
}

func New(objects []model.AddressObject, groups []model.AddressGroup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		objects: make(map[string]model.AddressObject, len(objects)),
		groups:  make(map[string][]string, len(groups)),
		cache:   make(map[string][]model.AddressObject),
		logger:  logger,
	}
	for _, obj := range objects {
		r.objects[obj.Name()] = obj
	}
	for _, group := range groups {
		r.groups[group.Name] = group.Static
	}
	return r
}

// Resolve expands every name into its address objects. The wildcard
// contributes nothing. Duplicates are kept; de-duplication is the caller's
// concern.
func (r *Resolver) Resolve(names []string) ([]model.AddressObject, error) {
	var result []model.AddressObject
	for _, name := range names {
		resolved, err := r.resolveName(name, nil)
		if err != nil {
			return nil, err
		}
		result = append(result, resolved...)
	}
	return result, nil
}

func (r *Resolver) resolveName(name string, path []string) ([]model.AddressObject, error) {
	if name == model.AnyObj {
		return nil, nil
	}

	if slices.Contains(path, name) {
		full := append(slices.Clone(path), name)
		return nil, &CircularDependencyError{Path: full}
	}

	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}

	if members, ok := r.groups[name]; ok {
		r.logger.Debug("resolving address group", "name", name)
		next := append(slices.Clone(path), name)
		var resolved []model.AddressObject
		for _, member := range members {
			memberObjects, err := r.resolveName(member, next)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, memberObjects...)
		}
		r.cache[name] = resolved
		return resolved, nil
	}

	if obj, ok := r.objects[name]; ok {
		r.logger.Debug("resolving address object", "name", name)
		resolved := []model.AddressObject{obj}
		r.cache[name] = resolved
		return resolved, nil
	}

	if obj, err := model.NewIPNetwork(name, name); err == nil {
		r.logger.Debug("parsed literal as IP network", "name", name)
		resolved := []model.AddressObject{obj}
		r.cache[name] = resolved
		return resolved, nil
	}

	if strings.Contains(name, "-") {
		obj, err := model.NewIPRange(name, name)
		if err == nil {
			r.logger.Debug("parsed literal as IP range", "name", name)
			resolved := []model.AddressObject{obj}
			r.cache[name] = resolved
			return resolved, nil
		}
		var rangeErr *model.InvalidRangeError
		if errors.As(err, &rangeErr) {
			return nil, rangeErr
		}
	}

	return nil, &UnresolvedReferenceError{Name: name}
}
