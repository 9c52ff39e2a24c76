package task

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/voidshard/taskqueue/pkg/errors"
)

// DefaultRegistry is used by Register, Deserialize & Task.Payload.
var DefaultRegistry = NewRegistry()

// envelope is the wire form of a task.
type envelope struct {
	Tag  string          `json:"tag"`
	Args json.RawMessage `json:"args"`
}

type entry struct {
	typ reflect.Type
	ptr bool
}

// Registry maps tags to the Runnable types they rebuild into.
type Registry struct {
	lock  sync.RWMutex
	types map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]*entry{}}
}

// Register makes the type of r known by its tag. Registering the same tag twice replaces it.
func Register(r Runnable) {
	if err := DefaultRegistry.Register(r); err != nil {
		panic(err)
	}
}

// Deserialize rebuilds a task from a payload using the DefaultRegistry.
func Deserialize(payload []byte) (*Task, error) {
	return DefaultRegistry.Deserialize(payload)
}

// TagOf returns the name a Runnable is registered (and grouped) under.
func TagOf(r Runnable) string {
	if t, ok := r.(*Task); ok {
		r = t.Runnable
	}
	if r == nil {
		return ""
	}
	typ := reflect.TypeOf(r)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ.Name()
}

func (r *Registry) Register(in Runnable) error {
	if in == nil {
		return fmt.Errorf("%w cannot register nil runnable", errors.ErrInvalidArg)
	}
	if t, ok := in.(*Task); ok {
		in = t.Runnable
	}

	typ := reflect.TypeOf(in)
	e := &entry{typ: typ}
	if typ.Kind() == reflect.Ptr {
		e.typ = typ.Elem()
		e.ptr = true
	}
	if e.typ.Name() == "" {
		return fmt.Errorf("%w runnable %s has no type name", errors.ErrInvalidArg, typ)
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.types[e.typ.Name()] = e
	return nil
}

// Tags returns every registered tag.
func (r *Registry) Tags() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]string, 0, len(r.types))
	for k := range r.types {
		out = append(out, k)
	}
	return out
}

// Serialize encodes a task. The task's tag must be registered.
func (r *Registry) Serialize(t *Task) ([]byte, error) {
	if t == nil || t.Runnable == nil {
		return nil, fmt.Errorf("%w cannot serialize empty task", errors.ErrInvalidArg)
	}
	tag := t.Tag()
	if r.lookup(tag) == nil {
		return nil, fmt.Errorf("%w %s", errors.ErrUnknownTag, tag)
	}
	args, err := json.Marshal(t.Runnable)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&envelope{Tag: tag, Args: args})
}

// Deserialize rebuilds a task from a payload. The returned task has no ID.
func (r *Registry) Deserialize(payload []byte) (*Task, error) {
	env := &envelope{}
	err := json.Unmarshal(payload, env)
	if err != nil {
		return nil, fmt.Errorf("%w bad payload: %v", errors.ErrInvalidArg, err)
	}

	e := r.lookup(env.Tag)
	if e == nil {
		return nil, fmt.Errorf("%w %s", errors.ErrUnknownTag, env.Tag)
	}

	obj := reflect.New(e.typ)
	if len(env.Args) > 0 && string(env.Args) != "null" {
		err = json.Unmarshal(env.Args, obj.Interface())
		if err != nil {
			return nil, fmt.Errorf("%w bad args for %s: %v", errors.ErrInvalidArg, env.Tag, err)
		}
	}

	var run interface{}
	if e.ptr {
		run = obj.Interface()
	} else {
		run = obj.Elem().Interface()
	}
	runnable, ok := run.(Runnable)
	if !ok {
		return nil, fmt.Errorf("%w %s is not runnable", errors.ErrInvalidArg, env.Tag)
	}
	return &Task{Runnable: runnable}, nil
}

func (r *Registry) lookup(tag string) *entry {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.types[tag]
}
