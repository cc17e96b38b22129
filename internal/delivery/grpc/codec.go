package grpc

import (
	"github.com/goccy/go-json"
	"google.golang.org/grpc/encoding"
)

// CodecName подтип содержимого: клиенты вызывают методы с grpc.CallContentSubtype(CodecName)
const CodecName = "json"

// jsonCodec кодирует сообщения TruthMeter в JSON. Служебные сервисы
// (health, reflection) продолжают работать через proto.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
