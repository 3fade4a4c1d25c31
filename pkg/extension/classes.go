package extension

import (
	"fmt"
	"reflect"
	"sync"
)

// NormalConstructor builds a normal extension instance. b grants access to
// the extension's declared dependencies (replacing reflection-driven setter
// injection; see Builder).
type NormalConstructor func(b Builder) (interface{}, error)

// WrapperConstructor decorates inner with cross-cutting behavior. A
// wrapper's sole "constructor parameter" is the interface itself; b is
// still supplied for the wrapper's own dependencies.
type WrapperConstructor func(inner interface{}, b Builder) (interface{}, error)

// classEntry is what RegisterClass/RegisterWrapper/RegisterAdaptiveClass publish
// into the process-wide class table, keyed by class path. This is the
// Go-native analogue of a class-path discovery protocol: since Go cannot
// load arbitrary compiled types from a text class path at runtime,
// the class path instead names a constructor registered at package-init
// time, the same way database/sql drivers or image codecs self-register.
type classEntry struct {
	path           string
	normal         NormalConstructor
	wrapper        WrapperConstructor
	order          int // wrapper priority; highest-priority wrapper ends up outermost
	matches        []string
	mismatch       []string
	adaptiveMarker bool
}

var (
	classesMu sync.RWMutex
	classes   = map[string]*classEntry{}
)

// RegisterClass publishes a normal extension constructor under classPath.
// Call from an implementation package's init().
func RegisterClass(classPath string, ctor NormalConstructor) {
	classesMu.Lock()
	defer classesMu.Unlock()
	classes[classPath] = &classEntry{path: classPath, normal: ctor}
}

// RegisterWrapper publishes a wrapper constructor. order is the wrapper's
// declared priority; matches/mismatches are the activation filters applied
// during wrapper composition.
func RegisterWrapper(classPath string, order int, matches, mismatches []string, ctor WrapperConstructor) {
	classesMu.Lock()
	defer classesMu.Unlock()
	classes[classPath] = &classEntry{path: classPath, wrapper: ctor, order: order, matches: matches, mismatch: mismatches}
}

func lookupClass(classPath string) (*classEntry, bool) {
	classesMu.RLock()
	defer classesMu.RUnlock()
	c, ok := classes[classPath]
	return c, ok
}

// instanceCache is the process-wide class→instance map: a class
// (identified by its class path) is instantiated at most once per process,
// and the same singleton is shared across every interface Registry that
// happens to reference it.
var instanceCache sync.Map // classPath -> *holder

func sharedInstance(classPath string, fill func() (interface{}, error)) (interface{}, error) {
	h, _ := instanceCache.LoadOrStore(classPath, &holder{})
	return h.(*holder).get(fill)
}

// registryOfRegistries enforces exactly one Registry per interface type,
// process-wide. Interfaces are identified by their reflect.Type.
var (
	registriesMu sync.Mutex
	registries   = map[reflect.Type]interface{}{}
)

// registryFor returns the process-wide Registry[T] for T, constructing it on
// first use.
func registryFor[T any]() *Registry[T] {
	key := reflect.TypeOf((*T)(nil)).Elem()
	registriesMu.Lock()
	defer registriesMu.Unlock()
	if r, ok := registries[key]; ok {
		return r.(*Registry[T])
	}
	r := newRegistry[T](key)
	registries[key] = r
	return r
}

// For returns the process-wide Registry for the extensible interface T.
// Only extensible interface types declared via Extensible[T] may be used
// here; others panic with InvalidExtensionTypeError.
func For[T any]() *Registry[T] {
	key := reflect.TypeOf((*T)(nil)).Elem()
	if key.Kind() != reflect.Interface {
		panic(NewInvalidExtensionType(key.String()))
	}
	if !isExtensible(key) {
		panic(NewInvalidExtensionType(key.String()))
	}
	return registryFor[T]()
}

var (
	extensibleMu sync.Mutex
	extensible   = map[reflect.Type]string{} // type -> default name
)

// Extensible marks T as an extensible interface type with an optional
// default extension name. Call once, usually from an init() alongside the
// interface's declaration.
func Extensible[T any](defaultName string) {
	key := reflect.TypeOf((*T)(nil)).Elem()
	extensibleMu.Lock()
	defer extensibleMu.Unlock()
	extensible[key] = defaultName
}

func isExtensible(t reflect.Type) bool {
	extensibleMu.Lock()
	defer extensibleMu.Unlock()
	_, ok := extensible[t]
	return ok
}

func defaultNameOf(t reflect.Type) string {
	extensibleMu.Lock()
	defer extensibleMu.Unlock()
	return extensible[t]
}

// DestroyAll invokes Lifecycle.Destroy on every cached instance across every
// registry, as a process-wide teardown entry point. Each instance's error
// is passed to onErr (when non-nil) and does not prevent destruction of the
// next.
func DestroyAll(onErr func(classPath string, err error)) {
	instanceCache.Range(func(key, value interface{}) bool {
		h := value.(*holder)
		if h.err != nil || h.value == nil {
			return true
		}
		if lc, ok := h.value.(Lifecycle); ok {
			if err := lc.Destroy(); err != nil && onErr != nil {
				onErr(key.(string), err)
			}
		}
		return true
	})
}

func fqnOf(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}
