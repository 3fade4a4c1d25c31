// Package serializer hosts the Serializer extension point: the wire-codec
// plugin surface spec.md §1 names as one of the framework's pluggable
// implementations, alongside protocols, transports, and filters. Two real
// codecs are wired in (encoding/json, and a protobuf codec built on
// google.golang.org/protobuf's structpb so it needs no generated .pb.go
// files), so the Serializer extension point has more than one concrete
// implementation to exercise the registry's name and default resolution
// against.
package serializer

import (
	"github.com/telepresenceio/go-extension/pkg/extension"
)

// Serializer marshals and unmarshals invocation payloads. Concrete
// payloads are a generic map, the same shape every codec here can both
// produce and consume, so Protocol implementations can round-trip a
// payload through any registered Serializer without a fixed message type.
type Serializer interface {
	Marshal(v map[string]interface{}) ([]byte, error)
	Unmarshal(data []byte) (map[string]interface{}, error)
}

func init() {
	extension.Extensible[Serializer]("json")
}

// register is called by each codec's own init() to publish its constructor
// into the process-wide class table, the same self-registration style
// pkg/loadbalance and pkg/threadpool use.
func register(name, classPath string, ctor func() Serializer) {
	extension.RegisterClass(classPath, func(b extension.Builder) (interface{}, error) {
		return ctor(), nil
	})
	reg := extension.For[Serializer]()
	_ = reg.AddExtension(name, classPath)
}
