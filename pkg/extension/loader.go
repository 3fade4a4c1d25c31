package extension

import (
	"bufio"
	"embed"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
)

//go:embed builtin
var builtinFS embed.FS

// LoadingStrategy is a prioritized recipe for descriptor discovery: a
// directory prefix, whether later definitions may override earlier ones,
// and a list of excluded package prefixes. LoadDescriptors consults
// strategies in ascending Priority order (stable for equal priorities).
// Only DirPrefix and Priority affect loading: PreferExtensions,
// OverridesAllowed and ExcludedPackages are carried on the strategy but
// are not consulted by LoadDescriptors or by the registry.
type LoadingStrategy struct {
	Name              string
	DirPrefix         string
	PreferExtensions  bool // prefer this module's own class source over the caller-supplied one
	OverridesAllowed  bool
	ExcludedPackages  []string
	Priority          int
}

// DefaultLoadingStrategies mirrors the framework's own three well-known
// descriptor directories, in priority order.
func DefaultLoadingStrategies() []LoadingStrategy {
	return []LoadingStrategy{
		{Name: "internal", DirPrefix: "META-INF/goext/internal/", PreferExtensions: true, OverridesAllowed: false, Priority: 0},
		{Name: "goext", DirPrefix: "META-INF/goext/", PreferExtensions: false, OverridesAllowed: false, Priority: 100},
		{Name: "services", DirPrefix: "META-INF/services/", PreferExtensions: false, OverridesAllowed: true, Priority: 200},
	}
}

// legacyPrefix is read alongside each strategy's own prefix (whether or not
// that prefix has a file for the interface), accepting descriptor files
// written against an older community package layout.
const legacyPrefix = "META-INF/dubbo/"

// loaderConfigMu guards the process-wide loader configuration: the extra
// descriptor directories and the legacy-prefix toggle a caller registers
// through RegisterDescriptorDir/SetLegacyPrefixEnabled, typically from
// extconfig.Env at process start, before any Registry's first ensureLoaded
// call. Changes after the first load of a given interface have no effect
// on that interface (descriptor loading is one-shot per §5).
var (
	loaderConfigMu      sync.RWMutex
	extraDescriptorFS   []fs.FS
	legacyPrefixEnabled = true
)

// RegisterDescriptorDir adds dir as an additional descriptor search root,
// consulted (via os.DirFS) alongside the module's own embedded builtin set
// at every strategy's priority. This is the process-wide setter §6 calls
// out for "user-supplied extension directories".
func RegisterDescriptorDir(dir string) {
	loaderConfigMu.Lock()
	defer loaderConfigMu.Unlock()
	extraDescriptorFS = append(extraDescriptorFS, os.DirFS(dir))
}

// SetLegacyPrefixEnabled toggles the META-INF/dubbo/ fallback lookup
// tried alongside each strategy's own directory prefix. Disabled by
// deployments that only ever ship META-INF/goext descriptors.
func SetLegacyPrefixEnabled(enabled bool) {
	loaderConfigMu.Lock()
	defer loaderConfigMu.Unlock()
	legacyPrefixEnabled = enabled
}

func registeredExtraFS() []fs.FS {
	loaderConfigMu.RLock()
	defer loaderConfigMu.RUnlock()
	return append([]fs.FS(nil), extraDescriptorFS...)
}

func legacyPrefixIsEnabled() bool {
	loaderConfigMu.RLock()
	defer loaderConfigMu.RUnlock()
	return legacyPrefixEnabled
}

// descriptorLine is one resolved entry from a descriptor file.
type descriptorLine struct {
	Name      string
	ClassPath string
	File      string
	LineNo    int
}

// LoadDescriptors reads every descriptor file named ifaceFQN across dirFSs
// (in strategy priority order) plus the module's own builtin set, and
// returns the resolved lines. Errors resolving individual lines are
// appended to errs as DescriptorLoadErrors instead of aborting the read.
func LoadDescriptors(ifaceFQN string, strategies []LoadingStrategy, extraFS []fs.FS) (lines []descriptorLine, errs []*DescriptorLoadError) {
	search := make([]fs.FS, 0, len(extraFS)+1)
	search = append(search, builtinFS)
	search = append(search, extraFS...)

	ordered := append([]LoadingStrategy(nil), strategies...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })
	for _, strat := range ordered {
		stratPrefixes := []string{strat.DirPrefix}
		if legacyPrefixIsEnabled() {
			stratPrefixes = append(stratPrefixes, legacyPrefix)
		}
		for _, dirFS := range search {
			for _, prefix := range stratPrefixes {
				path := prefix + ifaceFQN
				data, err := fs.ReadFile(dirFS, path)
				if err != nil {
					continue
				}
				ls, es := parseDescriptorFile(path, data)
				lines = append(lines, ls...)
				errs = append(errs, es...)
			}
		}
	}
	return lines, errs
}

func parseDescriptorFile(file string, data []byte) (lines []descriptorLine, errs []*DescriptorLoadError) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if idx := strings.IndexByte(raw, '#'); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var name, classPath string
		if idx := strings.IndexByte(raw, '='); idx >= 0 {
			name = strings.TrimSpace(raw[:idx])
			classPath = strings.TrimSpace(raw[idx+1:])
		} else {
			classPath = raw
		}
		if classPath == "" {
			errs = append(errs, NewDescriptorLoadError(file, lineNo, errEmptyClassPath))
			continue
		}
		if name == "" {
			name = deriveName(classPath, simpleName(file))
		}
		lines = append(lines, descriptorLine{Name: name, ClassPath: classPath, File: file, LineNo: lineNo})
	}
	return lines, errs
}

var errEmptyClassPath = &emptyClassPathError{}

type emptyClassPathError struct{}

func (*emptyClassPathError) Error() string { return "descriptor line names no implementation" }

// deriveName derives an extension name from a class path's simple name when
// no "name=" prefix was given: strip the interface's simple-name suffix, if
// present, and lowercase what remains.
func deriveName(classPath, ifaceSimpleName string) string {
	simple := simpleClassName(classPath)
	if ifaceSimpleName != "" && strings.HasSuffix(simple, ifaceSimpleName) && len(simple) > len(ifaceSimpleName) {
		simple = simple[:len(simple)-len(ifaceSimpleName)]
	}
	return strings.ToLower(simple)
}

func simpleClassName(fqcn string) string {
	if idx := strings.LastIndexByte(fqcn, '.'); idx >= 0 {
		return fqcn[idx+1:]
	}
	return fqcn
}

func simpleName(fqInterfaceName string) string {
	return simpleClassName(fqInterfaceName)
}
