package serializer

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Protobuf is a second Serializer, built on google.golang.org/protobuf's
// structpb.Struct rather than a hand-generated .pb.go message: it gives
// the same generic-map contract every Serializer here satisfies while
// still exercising the protobuf wire format and the module's existing
// google.golang.org/protobuf dependency, already carried for
// cmd/extensionctl's gRPC demo surface.
type Protobuf struct{}

func init() {
	register("protobuf", "github.com/telepresenceio/go-extension/pkg/serializer.Protobuf",
		func() Serializer { return Protobuf{} })
}

// Marshal implements Serializer.
func (Protobuf) Marshal(v map[string]interface{}) ([]byte, error) {
	s, err := structpb.NewStruct(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// Unmarshal implements Serializer.
func (Protobuf) Unmarshal(data []byte) (map[string]interface{}, error) {
	s := &structpb.Struct{}
	if len(data) > 0 {
		if err := proto.Unmarshal(data, s); err != nil {
			return nil, err
		}
	}
	return s.AsMap(), nil
}
