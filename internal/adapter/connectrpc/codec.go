package connectrpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec serialises plain Go message structs. It replaces connect's
// protojson codec, which only accepts proto.Message values.
type jsonCodec struct{ name string }

var _ connect.Codec = jsonCodec{}

func (c jsonCodec) Name() string { return c.name }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// CodecOptions installs the JSON codec for both content-type spellings connect
// negotiates.
func CodecOptions() []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithCodec(jsonCodec{name: "json"}),
		connect.WithCodec(jsonCodec{name: "json; charset=utf-8"}),
	}
}
