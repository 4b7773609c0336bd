package server

import (
	"encoding/json"

	"connectrpc.com/connect"
	"github.com/fxamacker/cbor/v2"
)

// The services exchange plain Go structs rather than generated protobuf
// messages, so both registered codecs work on arbitrary values. The JSON
// codec takes over connect's "json" name; "cbor" is served as
// application/cbor.

type jsonCodec struct{}

func (jsonCodec) Name() string                        { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)       { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error     { return json.Unmarshal(b, v) }
func (jsonCodec) MarshalStable(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) IsBinary() bool                      { return false }

var cborMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

type cborCodec struct{}

func (cborCodec) Name() string                        { return "cbor" }
func (cborCodec) Marshal(v any) ([]byte, error)       { return cborMode.Marshal(v) }
func (cborCodec) Unmarshal(b []byte, v any) error     { return cbor.Unmarshal(b, v) }
func (cborCodec) MarshalStable(v any) ([]byte, error) { return cborMode.Marshal(v) }
func (cborCodec) IsBinary() bool                      { return true }

// handlerOptions registers both codecs on a connect handler.
func handlerOptions() []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithCodec(cborCodec{}),
	}
}

// WithJSON makes a client speak JSON.
func WithJSON() connect.ClientOption { return connect.WithCodec(jsonCodec{}) }

// WithCBOR makes a client speak CBOR.
func WithCBOR() connect.ClientOption { return connect.WithCodec(cborCodec{}) }
