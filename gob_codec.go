package fetchqueue

import (
	"bytes"
	"encoding/gob"

	"github.com/DoNewsCode/core/contract"
)

var _ contract.Codec = gobCodec{}

// gobCodec is the default codec of CacheFetcher.
type gobCodec struct{}

// Marshal encodes a cached fetch result.
func (c gobCodec) Marshal(result interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a cached fetch result.
func (c gobCodec) Unmarshal(data []byte, result interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(result)
}
