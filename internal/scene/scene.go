// Package scene is the host side of the pipeline: a set of named objects,
// each owning one mesh, with pattern-based selection and commit
// notifications.
package scene

import (
	"fmt"
	"regexp"
	"sync"

	"demclean/internal/mesh"
)

// DefaultTargetPattern matches PLATEAU DEM tile names such as 533925_dem_6697
const DefaultTargetPattern = `^\d+_dem_\d+$`

// Object is a named entity owning exactly one mesh
type Object struct {
	Name string
	Mesh *mesh.Mesh

	// Revision counts commits since the object was added
	Revision int
	// Counts and Bounds are refreshed on every commit
	Counts    mesh.Counts
	Bounds    mesh.Bounds
	HasBounds bool
}

// CommitFunc is called after an object's mesh has been committed
type CommitFunc func(obj *Object)

// Scene holds objects in insertion order
type Scene struct {
	mu      sync.Mutex
	objects []*Object
	byName  map[string]*Object
	hooks   []CommitFunc
}

// New creates an empty scene
func New() *Scene {
	return &Scene{byName: make(map[string]*Object)}
}

// Add registers a new object. Names must be unique within the scene.
func (s *Scene) Add(name string, m *mesh.Mesh) (*Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[name]; exists {
		return nil, fmt.Errorf("object %q already exists", name)
	}
	if m == nil {
		m = mesh.New()
	}
	obj := &Object{Name: name, Mesh: m}
	refresh(obj)
	s.objects = append(s.objects, obj)
	s.byName[name] = obj
	return obj, nil
}

// Get looks up an object by name
func (s *Scene) Get(name string) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.byName[name]
	return obj, ok
}

// Objects returns every object in insertion order
func (s *Scene) Objects() []*Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Object(nil), s.objects...)
}

// Len returns the number of objects
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Select returns the objects whose names match pattern, in insertion order.
// A nil pattern selects everything.
func (s *Scene) Select(pattern *regexp.Regexp) []*Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Object
	for _, obj := range s.objects {
		if pattern == nil || pattern.MatchString(obj.Name) {
			out = append(out, obj)
		}
	}
	return out
}

// OnCommit registers a hook fired after every commit
func (s *Scene) OnCommit(fn CommitFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Commit refreshes the object's derived state after its mesh was edited and
// notifies the registered hooks
func (s *Scene) Commit(obj *Object) {
	s.mu.Lock()
	obj.Revision++
	refresh(obj)
	hooks := append([]CommitFunc(nil), s.hooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(obj)
	}
}

func refresh(obj *Object) {
	obj.Counts = obj.Mesh.Counts()
	obj.Bounds, obj.HasBounds = obj.Mesh.Bounds()
}

// CompilePattern compiles a target pattern, falling back to
// DefaultTargetPattern when expr is empty. The pattern must match at the
// start of an object name but may stop short of its end.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		expr = DefaultTargetPattern
	}
	re, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid target pattern %q: %w", expr, err)
	}
	return re, nil
}
