package extension

// ObjectFactory is the extension point setter/builder injection resolves
// dependencies through. In a reflection-driven framework this would itself
// be an adaptive extension; here it is realized directly by the generic
// Resolve/Ref machinery in builder.go. ObjectFactory exists as a thin named
// façade so call sites can refer to "the object factory" without every
// Builder consumer having to know it is backed by generics under the hood.
type ObjectFactory interface {
	// GetExtension returns the process-wide *Registry[T] (as interface{})
	// of the extension point whose fully-qualified interface name is
	// typeName, or a NoSuchExtensionError if no such registry exists yet.
	// It returns the registry, not an instance: name is used only in the
	// error.
	GetExtension(typeName, name string) (interface{}, error)
}

func init() {
	Extensible[ObjectFactory]("")
	RegisterAdaptiveClass("github.com/telepresenceio/go-extension/pkg/extension.registryObjectFactory",
		func(b Builder) (interface{}, error) { return registryObjectFactory{}, nil })
	_ = For[ObjectFactory]().AddExtension("", "github.com/telepresenceio/go-extension/pkg/extension.registryObjectFactory")
}

// registryObjectFactory is the built-in ObjectFactory, bound as the
// interface's adaptive class: GetExtension(typeName, name) walks the
// registry-of-registries by fully-qualified interface name.
type registryObjectFactory struct{}

func (registryObjectFactory) GetExtension(typeName, name string) (interface{}, error) {
	registriesMu.Lock()
	var found interface{}
	for t, r := range registries {
		if fqnOf(t) == typeName {
			found = r
			break
		}
	}
	registriesMu.Unlock()
	if found == nil {
		return nil, NewNoSuchExtension(typeName, name, nil)
	}
	// The registry-of-registries stores *Registry[T] behind interface{};
	// callers that know T should prefer the generic Resolve[T] helper.
	// This reflective-ish path exists only to satisfy the ObjectFactory
	// façade for callers working from a type name string.
	return found, nil
}
