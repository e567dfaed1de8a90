// Package curves instantiates ecc.Point implementations by type name.
package curves

import (
	"fmt"

	"github.com/encfund/fundraiser/crypto/ecc"
	"github.com/encfund/fundraiser/crypto/ecc/bjj"
	"github.com/encfund/fundraiser/crypto/ecc/bn254"
)

const (
	// CurveTypeBabyJubJub is the default curve for homomorphic operations.
	CurveTypeBabyJubJub = bjj.CurveType
	CurveTypeBN254      = bn254.CurveType
)

// New creates a new instance of a curve Point implementation based on the
// provided type string. The supported types are defined as constants in
// this package. If the type is not supported, it panics.
func New(curveType string) ecc.Point {
	switch curveType {
	case CurveTypeBabyJubJub:
		return bjj.New()
	case CurveTypeBN254:
		return bn254.New()
	default:
		panic(fmt.Sprintf("unsupported curve type: %s", curveType))
	}
}
