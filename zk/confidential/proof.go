package confidential

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/Stealf-finance/backend-stealf-sub001/protocol"
)

const (
	// ProofBytesLen is the uncompressed canonical proof size consumed by
	// the on-chain verifier: A (64) + B (128) + C (64).
	ProofBytesLen = 256
)

var (
	ErrCoordinateOutOfRange = errors.New("proof coordinate out of range")
	ErrPointNotOnCurve      = errors.New("proof point not on curve")
)

// Proof holds a BN254 Groth16 proof as raw big-endian coordinates, the
// form proving services return them in. B's quadratic extension coords are
// kept split: x0/y0 real, x1/y1 imaginary.
type Proof struct {
	Ax, Ay [32]byte

	Bx0, Bx1 [32]byte
	By0, By1 [32]byte

	Cx, Cy [32]byte
}

var baseModulus = fp.Modulus()

func baseElement(name string, b [32]byte) (fp.Element, error) {
	v := new(big.Int).SetBytes(b[:])
	if v.Cmp(baseModulus) >= 0 {
		return fp.Element{}, fmt.Errorf("%w: %w: %s", protocol.ErrCrypto, ErrCoordinateOutOfRange, name)
	}
	var e fp.Element
	e.SetBigInt(v)
	return e, nil
}

// Validate checks every coordinate against the base field and both affine
// points against their curve equations. The point at infinity (all-zero A
// or C) is rejected; a real proof never contains it.
func (p *Proof) Validate() error {
	var g1 [2]struct {
		name string
		x, y [32]byte
	}
	g1[0].name, g1[0].x, g1[0].y = "A", p.Ax, p.Ay
	g1[1].name, g1[1].x, g1[1].y = "C", p.Cx, p.Cy

	for _, pt := range g1 {
		x, err := baseElement(pt.name+".x", pt.x)
		if err != nil {
			return err
		}
		y, err := baseElement(pt.name+".y", pt.y)
		if err != nil {
			return err
		}
		aff := bn254.G1Affine{X: x, Y: y}
		if aff.IsInfinity() || !aff.IsOnCurve() {
			return fmt.Errorf("%w: %w: %s", protocol.ErrCrypto, ErrPointNotOnCurve, pt.name)
		}
	}

	bx0, err := baseElement("B.x0", p.Bx0)
	if err != nil {
		return err
	}
	bx1, err := baseElement("B.x1", p.Bx1)
	if err != nil {
		return err
	}
	by0, err := baseElement("B.y0", p.By0)
	if err != nil {
		return err
	}
	by1, err := baseElement("B.y1", p.By1)
	if err != nil {
		return err
	}
	var b bn254.G2Affine
	b.X.A0, b.X.A1 = bx0, bx1
	b.Y.A0, b.Y.A1 = by0, by1
	if b.IsInfinity() || !b.IsOnCurve() {
		return fmt.Errorf("%w: %w: B", protocol.ErrCrypto, ErrPointNotOnCurve)
	}
	return nil
}

// canonicalB orders B's extension coordinates imaginary-first, the order
// the on-chain verifier consumes.
func canonicalB(p *Proof) [128]byte {
	var out [128]byte
	copy(out[0:32], p.Bx1[:])
	copy(out[32:64], p.Bx0[:])
	copy(out[64:96], p.By1[:])
	copy(out[96:128], p.By0[:])
	return out
}

// Canonical returns the 256-byte proof encoding: A, then B with its
// extension coordinates reordered by canonicalB, then C. Big-endian
// throughout.
func (p *Proof) Canonical() ([ProofBytesLen]byte, error) {
	var out [ProofBytesLen]byte
	if err := p.Validate(); err != nil {
		return out, err
	}
	copy(out[0:32], p.Ax[:])
	copy(out[32:64], p.Ay[:])
	b := canonicalB(p)
	copy(out[64:192], b[:])
	copy(out[192:224], p.Cx[:])
	copy(out[224:256], p.Cy[:])
	return out, nil
}
