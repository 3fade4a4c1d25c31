package extension

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ActivationDescriptor is the (group, keys, order) metadata attached to an
// Activatable normal extension, consulted by GetActivateExtension.
type ActivationDescriptor struct {
	Group []string
	Keys  []KeyMatch
	Order int
}

// KeyMatch is one entry of an activation descriptor's key list: the URL
// must carry a parameter named Key (or ending in ".Key") whose value
// satisfies Constraint, when Constraint is non-empty.
type KeyMatch struct {
	Key        string
	Constraint string
}

// Registry is the per-interface extension container. There is exactly one
// Registry[T] per interface type, process-wide, obtained via For[T]() or
// the package-level registryFor[T]().
type Registry[T any] struct {
	iface reflect.Type
	fqn   string

	mu sync.RWMutex

	nameToClass map[string]string // name -> class path
	classToName map[string]string
	activation  map[string]ActivationDescriptor
	wrapperPath []string // in registration order; applyWrappers sorts a copy by priority
	adaptive    string
	poisoned    map[string]bool
	lineErrors  map[string][]error // keyed by name (lowercased): line-of-input -> load error

	defaultName string
	loaded      bool

	nameHolders    map[string]*holder
	adaptiveHolder *holder
}

func newRegistry[T any](iface reflect.Type) *Registry[T] {
	return &Registry[T]{
		iface:       iface,
		fqn:         fqnOf(iface),
		nameToClass: map[string]string{},
		classToName: map[string]string{},
		activation:  map[string]ActivationDescriptor{},
		poisoned:    map[string]bool{},
		lineErrors:  map[string][]error{},
		nameHolders: map[string]*holder{},
		defaultName: defaultNameOf(iface),
	}
}

// ensureLoaded runs the one-shot descriptor load: the first call performs
// I/O; later calls still take the registry's write lock, only to see that
// loading is already done.
func (r *Registry[T]) ensureLoaded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return
	}
	r.loaded = true

	lines, errs := LoadDescriptors(r.fqn, DefaultLoadingStrategies(), registeredExtraFS())
	for _, e := range errs {
		key := strings.ToLower(ifaceLocalName(e.File))
		r.lineErrors[key] = append(r.lineErrors[key], e)
	}
	for _, line := range lines {
		r.registerLineLocked(line)
	}
}

func ifaceLocalName(file string) string {
	return simpleClassName(file)
}

func (r *Registry[T]) registerLineLocked(line descriptorLine) {
	entry, ok := lookupClass(line.ClassPath)
	if !ok {
		// Class path names no registered constructor: record and skip.
		r.lineErrors[strings.ToLower(line.Name)] = append(r.lineErrors[strings.ToLower(line.Name)],
			fmt.Errorf("%s:%d: no constructor registered for class %q", line.File, line.LineNo, line.ClassPath))
		return
	}
	switch {
	case entry.wrapper != nil:
		r.wrapperPath = append(r.wrapperPath, line.ClassPath)
	default:
		r.addNormalLocked(line.Name, line.ClassPath, false)
	}
}

func (r *Registry[T]) addNormalLocked(name, classPath string, override bool) {
	if existing, exists := r.nameToClass[name]; exists && existing != classPath {
		if !override {
			r.poisoned[name] = true
			r.lineErrors[strings.ToLower(name)] = append(r.lineErrors[strings.ToLower(name)],
				NewDuplicateExtension(r.fqn, name, existing, classPath))
			return
		}
	}
	r.nameToClass[name] = classPath
	r.classToName[classPath] = name
}

// AddExtension programmatically registers classPath under name. Adaptive
// classes (registered via RegisterAdaptiveClass) are recognized by the
// presence of the adaptive marker and stored separately from normal
// extensions. Wrapper classes (registered via RegisterWrapper) join the
// interface's wrapper chain instead of being registered under name.
func (r *Registry[T]) AddExtension(name, classPath string) error {
	r.ensureLoaded()
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := lookupClass(classPath); ok && e.wrapper != nil {
		for _, p := range r.wrapperPath {
			if p == classPath {
				return nil
			}
		}
		r.wrapperPath = append(r.wrapperPath, classPath)
		return nil
	}
	if isAdaptiveClass(classPath) {
		if r.adaptive != "" && r.adaptive != classPath {
			return NewMultipleAdaptive(r.fqn)
		}
		r.adaptive = classPath
		return nil
	}
	r.addNormalLocked(name, classPath, false)
	return nil
}

// ReplaceExtension is AddExtension with override semantics: an existing
// name is silently replaced rather than poisoned.
func (r *Registry[T]) ReplaceExtension(name, classPath string) error {
	r.ensureLoaded()
	r.mu.Lock()
	defer r.mu.Unlock()
	if isAdaptiveClass(classPath) {
		r.adaptive = classPath
		return nil
	}
	delete(r.poisoned, name)
	r.nameToClass[name] = classPath
	r.classToName[classPath] = name
	return nil
}

// HasExtension reports whether name is registered and not poisoned.
func (r *Registry[T]) HasExtension(name string) bool {
	r.ensureLoaded()
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nameToClass[name]
	return ok && !r.poisoned[name]
}

// GetSupported returns every registered, unpoisoned extension name.
func (r *Registry[T]) GetSupported() []string {
	r.ensureLoaded()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.nameToClass))
	for name := range r.nameToClass {
		if !r.poisoned[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// GetLoadedExtensions returns the names whose instance has already been
// constructed.
func (r *Registry[T]) GetLoadedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.nameHolders))
	for name, h := range r.nameHolders {
		if h.value != nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// GetExtensionName returns the name classPath was registered under, if
// any. Used to round-trip a resolved class back to its registered name.
func (r *Registry[T]) GetExtensionName(classPath string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.classToName[classPath]
	return n, ok
}

// Get resolves name to its cached singleton instance, constructing it on
// first request. The sentinel name "true"
// is an alias for GetDefault.
func (r *Registry[T]) Get(name string) (T, error) {
	return r.getWithChain(name, newChain())
}

// getWithChain pushes this (interface, name) pair onto chain before doing
// any work, so a construction that re-enters the same pair — directly, or
// by looping back through other extensions — is caught by push itself
// rather than by re-entering the name's holder, whose sync.Once would
// otherwise deadlock the calling goroutine.
func (r *Registry[T]) getWithChain(name string, chain *constructionChain) (T, error) {
	var zero T
	key := r.fqn + ":" + orTrue(name)
	if err := chain.push(key); err != nil {
		return zero, err
	}
	defer chain.pop()

	if name == "true" {
		r.ensureLoaded()
		r.mu.RLock()
		def := r.defaultName
		r.mu.RUnlock()
		if def == "" {
			return zero, NewNoSuchExtension(r.fqn, "true", nil)
		}
		return r.getWithChain(def, chain)
	}
	r.ensureLoaded()

	r.mu.RLock()
	classPath, ok := r.nameToClass[name]
	poisoned := r.poisoned[name]
	h, hasHolder := r.nameHolders[name]
	r.mu.RUnlock()

	if !ok || poisoned {
		return zero, r.noSuchExtension(name)
	}
	if !hasHolder {
		r.mu.Lock()
		h, hasHolder = r.nameHolders[name]
		if !hasHolder {
			h = &holder{}
			r.nameHolders[name] = h
		}
		r.mu.Unlock()
	}

	v, err := h.get(func() (interface{}, error) {
		return r.construct(name, classPath, chain)
	})
	if err != nil {
		return zero, err
	}
	t, ok2 := v.(T)
	if !ok2 {
		return zero, fmt.Errorf("extension %q does not implement %s", name, r.fqn)
	}
	return t, nil
}

func (r *Registry[T]) noSuchExtension(name string) error {
	r.mu.RLock()
	var causes []error
	prefix := strings.ToLower(name)
	for key, errs := range r.lineErrors {
		if strings.HasPrefix(key, prefix) {
			causes = append(causes, errs...)
		}
	}
	r.mu.RUnlock()
	return NewNoSuchExtension(r.fqn, name, causes)
}

// construct resolves the class, instantiates it as the process-wide
// singleton, folds applicable wrappers outermost-first, and calls
// Initialize if the result implements Lifecycle.
func (r *Registry[T]) construct(name, classPath string, chain *constructionChain) (interface{}, error) {
	entry, ok := lookupClass(classPath)
	if !ok || entry.normal == nil {
		return nil, NewInstantiationFailed(r.fqn, name, fmt.Errorf("no constructor registered for %q", classPath))
	}

	base, err := sharedInstance(classPath, func() (interface{}, error) {
		b := Builder{chain: chain}
		v, err := entry.normal(b)
		if err != nil {
			return nil, NewInstantiationFailed(r.fqn, name, errors.Wrapf(err, "constructing class %q", classPath))
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	wrapped, err := r.applyWrappers(base, name, chain)
	if err != nil {
		return nil, err
	}

	if lc, ok := wrapped.(Lifecycle); ok {
		if err := lc.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize %s extension %q: %w", r.fqn, name, err)
		}
	}
	return wrapped, nil
}

// applyWrappers right-folds the admitted wrapper chain over base, outermost
// wrapper last applied: reversed once so the highest-priority wrapper
// ends up outermost.
func (r *Registry[T]) applyWrappers(base interface{}, name string, chain *constructionChain) (interface{}, error) {
	r.mu.RLock()
	paths := append([]string(nil), r.wrapperPath...)
	r.mu.RUnlock()

	type candidate struct {
		path  string
		entry *classEntry
	}
	var admitted []candidate
	for _, p := range paths {
		e, ok := lookupClass(p)
		if !ok || e.wrapper == nil {
			continue
		}
		if wrapperAdmits(e, name) {
			admitted = append(admitted, candidate{p, e})
		}
	}
	sort.SliceStable(admitted, func(i, j int) bool {
		return admitted[i].entry.order < admitted[j].entry.order
	})
	// Highest priority (smallest order) ends up outermost: fold from the
	// lowest-priority wrapper inward so the first one applied wraps last.
	for i := len(admitted) - 1; i >= 0; i-- {
		c := admitted[i]
		wrapped, err := sharedInstance(c.path+"#"+name, func() (interface{}, error) {
			b := Builder{chain: chain}
			return c.entry.wrapper(base, b)
		})
		if err != nil {
			return nil, NewInstantiationFailed(r.fqn, name, err)
		}
		base = wrapped
	}
	return base, nil
}

func wrapperAdmits(e *classEntry, name string) bool {
	matches := len(e.matches) == 0
	for _, m := range e.matches {
		if m == name {
			matches = true
			break
		}
	}
	if !matches {
		return false
	}
	for _, m := range e.mismatch {
		if m == name {
			return false
		}
	}
	return true
}

// GetDefault resolves the interface's declared default extension name, if
// any.
func (r *Registry[T]) GetDefault() (T, error) {
	var zero T
	r.ensureLoaded()
	r.mu.RLock()
	def := r.defaultName
	r.mu.RUnlock()
	if def == "" {
		return zero, NewNoSuchExtension(r.fqn, "true", nil)
	}
	return r.getWithChain(def, newChain())
}

// GetOrDefault resolves name if registered, else falls back to the
// interface's default.
func (r *Registry[T]) GetOrDefault(name string) (T, error) {
	if r.HasExtension(name) {
		return r.Get(name)
	}
	return r.GetDefault()
}
