package extension

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// URL is the configuration and address abstraction that drives adaptive
// dispatch, load-balancer weights, and executor-factory sizing. It wraps a
// keyed parameter bag the way an RPC framework's own URL type does, but is
// implemented in-module rather than treated as an external collaborator:
// Go has no widely shared "service URL" library to reach for instead.
type URL struct {
	Protocol string
	Host     string
	Port     int
	Path     string

	params       map[string]string
	methodParams map[string]map[string]string
}

// NewURL builds a URL with the given scheme, host:port and query-style
// parameters.
func NewURL(protocol, host string, port int, params map[string]string) *URL {
	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}
	return &URL{
		Protocol:     protocol,
		Host:         host,
		Port:         port,
		params:       p,
		methodParams: make(map[string]map[string]string),
	}
}

// Parse decodes a URL of the form scheme://host:port/path?k=v&k=v.
func Parse(raw string) (*URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
	}
	params := make(map[string]string)
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return &URL{
		Protocol:     u.Scheme,
		Host:         u.Hostname(),
		Port:         port,
		Path:         strings.TrimPrefix(u.Path, "/"),
		params:       params,
		methodParams: make(map[string]map[string]string),
	}, nil
}

// GetParameter looks up a top-level parameter. The empty string and false
// are returned when the key is absent, mirroring the external URL's
// getParameter(key) → string|∅ contract.
func (u *URL) GetParameter(key string) (string, bool) {
	if u == nil {
		return "", false
	}
	v, ok := u.params[key]
	return v, ok
}

// GetParameterOr returns the parameter value, or def if absent.
func (u *URL) GetParameterOr(key, def string) string {
	if v, ok := u.GetParameter(key); ok && v != "" {
		return v
	}
	return def
}

// GetMethodParameter looks up a parameter scoped to method, falling back to
// the un-scoped parameter of the same key.
func (u *URL) GetMethodParameter(method, key string) (string, bool) {
	if u == nil {
		return "", false
	}
	if mp, ok := u.methodParams[method]; ok {
		if v, ok := mp[key]; ok {
			return v, true
		}
	}
	return u.GetParameter(key)
}

// SetMethodParameter scopes a parameter to a specific method name, used by
// adaptive-key resolution's "<method>.<key>" suffix form.
func (u *URL) SetMethodParameter(method, key, value string) {
	if u.methodParams == nil {
		u.methodParams = make(map[string]map[string]string)
	}
	mp, ok := u.methodParams[method]
	if !ok {
		mp = make(map[string]string)
		u.methodParams[method] = mp
	}
	mp[key] = value
}

// SetParameter sets (or overwrites) a top-level parameter and returns u for
// chaining.
func (u *URL) SetParameter(key, value string) *URL {
	if u.params == nil {
		u.params = make(map[string]string)
	}
	u.params[key] = value
	return u
}

// GetParameters returns every top-level key/value pair, sorted by key so
// callers (notably the rejection-policy diagnostic dump) get stable output.
func (u *URL) GetParameters() []KV {
	if u == nil {
		return nil
	}
	out := make([]KV, 0, len(u.params))
	for k, v := range u.params {
		out = append(out, KV{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// KV is a single key/value parameter pair.
type KV struct {
	Key   string
	Value string
}

func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(u.Protocol)
	b.WriteString("://")
	b.WriteString(u.Host)
	if u.Port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.Port))
	}
	if u.Path != "" {
		b.WriteByte('/')
		b.WriteString(u.Path)
	}
	if len(u.params) > 0 {
		b.WriteByte('?')
		kvs := u.GetParameters()
		for i, kv := range kvs {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(kv.Key)
			b.WriteByte('=')
			b.WriteString(kv.Value)
		}
	}
	return b.String()
}
