package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName имя кодека в content-subtype (application/grpc+json)
const CodecName = "json"

// Codec сериализует сообщения TransformerMonitor в JSON
type Codec struct{}

var _ encoding.Codec = Codec{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(Codec{})
}
