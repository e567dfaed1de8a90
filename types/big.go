package types

import (
	"fmt"
	"math/big"
)

// BigInt is a big.Int that marshals as a decimal string in JSON and as a
// big-endian byte slice in CBOR.
type BigInt big.Int

// MathBigInt returns the underlying *big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetBigInt sets i to the value of the given *big.Int and returns it.
func (i *BigInt) SetBigInt(v *big.Int) *BigInt {
	(*big.Int)(i).Set(v)
	return i
}

// String returns the decimal representation of the integer.
func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}

// MarshalJSON implements the json.Marshaler interface.
func (i *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. It accepts both
// a quoted decimal string and a bare JSON number.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, ok := (*big.Int)(i).SetString(s, 10); !ok {
		return fmt.Errorf("invalid big integer: %q", data)
	}
	return nil
}

// MarshalCBOR implements the cbor.Marshaler interface.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cborEncode((*big.Int)(i).Bytes())
}

// UnmarshalCBOR implements the cbor.Unmarshaler interface.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cborDecode(data, &buf); err != nil {
		return err
	}
	(*big.Int)(i).SetBytes(buf)
	return nil
}
