package usecase

import (
	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
)

// encodeJSON serializes v through a pooled buffer and returns an owned copy.
func encodeJSON(v any) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(v); err != nil {
		return nil, crerr.Wrap(err, "encode json")
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

func decodeJSON(data []byte, v any) error {
	if err := sonic.Unmarshal(data, v); err != nil {
		return crerr.Wrap(err, "decode json")
	}
	return nil
}
