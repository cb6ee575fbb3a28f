package service

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName is the name Connect negotiates for JSON payloads.
const CodecName = "json"

// JSONCodec encodes plain Go messages with encoding/json and protobuf messages
// with protojson, so both can travel over the Connect protocol.
type JSONCodec struct {
	name string
}

// NewJSONCodec returns a codec registered under name.
func NewJSONCodec(name string) *JSONCodec {
	return &JSONCodec{name: name}
}

func (c *JSONCodec) Name() string {
	return c.name
}

func (c *JSONCodec) Marshal(msg any) ([]byte, error) {
	if m, ok := msg.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(msg)
}

// Unmarshal leaves msg untouched for an empty body.
func (c *JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if m, ok := msg.(proto.Message); ok {
		return protojson.Unmarshal(data, m)
	}
	return json.Unmarshal(data, msg)
}
