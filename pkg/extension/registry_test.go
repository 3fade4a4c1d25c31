package extension

import "testing"

// Greeter is a test-local extensible interface. Registries are process-wide
// singletons keyed by reflect.Type, so each test in this package that
// exercises registry state declares its own interface type to stay
// isolated from the others.
type Greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type frenchGreeter struct{}

func (frenchGreeter) Greet() string { return "bonjour" }

func init() {
	Extensible[Greeter]("english")
	RegisterClass("test.englishGreeter", func(b Builder) (interface{}, error) { return englishGreeter{}, nil })
	RegisterClass("test.frenchGreeter", func(b Builder) (interface{}, error) { return frenchGreeter{}, nil })
}

func TestGetDefaultResolvesDeclaredDefault(t *testing.T) {
	reg := For[Greeter]()
	if err := reg.AddExtension("english", "test.englishGreeter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := reg.GetDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Greet() != "hello" {
		t.Fatalf("unexpected greeting: %q", g.Greet())
	}
}

func TestGetTrueIsAnAliasForDefault(t *testing.T) {
	reg := For[Greeter]()
	if err := reg.AddExtension("english", "test.englishGreeter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := reg.Get("true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Greet() != "hello" {
		t.Fatalf("expected Get(\"true\") to alias the declared default, got %q", g.Greet())
	}
}

func TestGetIsASingletonPerName(t *testing.T) {
	reg := For[Greeter]()
	if err := reg.AddExtension("french", "test.frenchGreeter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Get("french"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Get("french"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Construction is process-wide cached by class path; both
	// resolutions share the same process-wide instance even though the
	// value itself is a zero-size struct, so assert via GetLoadedExtensions
	// staying at one entry instead of pointer identity.
	loaded := reg.GetLoadedExtensions()
	count := 0
	for _, n := range loaded {
		if n == "french" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected french to appear exactly once in loaded extensions, got %v", loaded)
	}
}

func TestGetUnknownNameIsNoSuchExtension(t *testing.T) {
	reg := For[Greeter]()
	_, err := reg.Get("klingon")
	if err == nil {
		t.Fatalf("expected an error for an unregistered name")
	}
	nse, ok := err.(*NoSuchExtensionError)
	if !ok {
		t.Fatalf("expected a NoSuchExtensionError, got %T: %v", err, err)
	}
	if nse.Name != "klingon" {
		t.Fatalf("unexpected name on error: %q", nse.Name)
	}
}

func TestAddExtensionDuplicateNamePoisons(t *testing.T) {
	reg := For[Greeter]()
	if err := reg.AddExtension("dup", "test.englishGreeter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.AddExtension("dup", "test.frenchGreeter"); err != nil {
		// AddExtension itself never returns the duplicate error; it is
		// raised lazily the next time the poisoned name is resolved.
		t.Fatalf("unexpected error from AddExtension itself: %v", err)
	}
	_, err := reg.Get("dup")
	if err == nil {
		t.Fatalf("expected the poisoned duplicate name to fail resolution")
	}
	if _, ok := err.(*NoSuchExtensionError); !ok {
		t.Fatalf("expected NoSuchExtensionError wrapping the duplicate cause, got %T", err)
	}
}

func TestReplaceExtensionOverridesWithoutPoisoning(t *testing.T) {
	reg := For[Greeter]()
	if err := reg.AddExtension("swap", "test.englishGreeter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.ReplaceExtension("swap", "test.frenchGreeter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := reg.Get("swap")
	if err != nil {
		t.Fatalf("unexpected error after replace: %v", err)
	}
	if g.Greet() != "bonjour" {
		t.Fatalf("expected the replaced class to win, got %q", g.Greet())
	}
}

func TestHasExtensionAndGetSupported(t *testing.T) {
	reg := For[Greeter]()
	if err := reg.AddExtension("supported-probe", "test.englishGreeter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reg.HasExtension("supported-probe") {
		t.Fatalf("expected supported-probe to be registered")
	}
	if reg.HasExtension("never-registered") {
		t.Fatalf("expected never-registered to be absent")
	}
	found := false
	for _, n := range reg.GetSupported() {
		if n == "supported-probe" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected GetSupported to include supported-probe")
	}
}

func TestForPanicsOnNonExtensibleType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected For to panic for a non-extensible interface")
		}
	}()
	For[notExtensible]()
}

type notExtensible interface {
	Nope()
}
