package types

import "github.com/fxamacker/cbor/v2"

func cborEncode(v any) ([]byte, error) {
	opts := cbor.CoreDetEncOptions()
	em, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(v)
}

func cborDecode(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}
