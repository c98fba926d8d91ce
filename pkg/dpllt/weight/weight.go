// Package weight implements the Weight type used by weighted literals and
// aggregate bounds (spec §3). Weight is parameterizable between a
// fixed-precision int64 mode (fast, but must detect overflow) and an
// arbitrary-precision mode backed by math/big — no retrieved example in
// this pack vendors a big-integer library, so this is the one ambient
// concern this module leaves on the standard library (see DESIGN.md).
package weight

import (
	"math/big"

	"github.com/pkg/errors"
)

// ErrOverflow is returned by fixed-precision arithmetic that would exceed
// the safe range, per spec §7 ("arithmetic overflow ... raised at the
// addition call that would exceed the safe sum/product").
var ErrOverflow = errors.New("weight: fixed-precision arithmetic overflow")

// Mode selects fixed- or arbitrary-precision arithmetic.
type Mode int

const (
	Fixed Mode = iota
	Arbitrary
)

// Weight is a signed integer that is either fixed-precision (int64) or
// arbitrary-precision (math/big.Int), decided once per Kernel at
// construction time via Options.WeightMode.
type Weight struct {
	mode Mode
	fx   int64
	big  *big.Int
}

// FromInt64 builds a Weight in the given mode.
func FromInt64(mode Mode, v int64) Weight {
	if mode == Arbitrary {
		return Weight{mode: Arbitrary, big: big.NewInt(v)}
	}
	return Weight{mode: Fixed, fx: v}
}

// Zero returns the additive identity in the given mode.
func Zero(mode Mode) Weight { return FromInt64(mode, 0) }

// One returns the multiplicative identity in the given mode.
func One(mode Mode) Weight { return FromInt64(mode, 1) }

// Mode reports which representation this weight uses.
func (w Weight) Mode() Mode { return w.mode }

// Int64 returns the fixed-precision value. Only valid when Mode() ==
// Fixed.
func (w Weight) Int64() int64 { return w.fx }

// Big returns the arbitrary-precision value. Only valid when Mode() ==
// Arbitrary.
func (w Weight) Big() *big.Int { return w.big }

// Sign reports -1, 0, or 1.
func (w Weight) Sign() int {
	if w.mode == Arbitrary {
		return w.big.Sign()
	}
	switch {
	case w.fx < 0:
		return -1
	case w.fx > 0:
		return 1
	default:
		return 0
	}
}

// Cmp compares two weights of the same mode.
func (w Weight) Cmp(o Weight) int {
	if w.mode == Arbitrary {
		return w.big.Cmp(o.big)
	}
	switch {
	case w.fx < o.fx:
		return -1
	case w.fx > o.fx:
		return 1
	default:
		return 0
	}
}

// fixedSafeBound is the largest magnitude that two int64 weights may safely
// reach without risking overflow on a subsequent add; normalization uses
// this to statically prove no-overflow rather than trap mid-propagation
// (spec §7: "normalization statically proves no overflow is possible").
const fixedSafeBound = int64(1) << 61

// Add returns w+o, or ErrOverflow in fixed mode if the safe bound would be
// exceeded.
func (w Weight) Add(o Weight) (Weight, error) {
	if w.mode == Arbitrary {
		return Weight{mode: Arbitrary, big: new(big.Int).Add(w.big, o.big)}, nil
	}
	sum := w.fx + o.fx
	if w.fx > 0 && o.fx > 0 && sum > fixedSafeBound {
		return Weight{}, ErrOverflow
	}
	if w.fx < 0 && o.fx < 0 && sum < -fixedSafeBound {
		return Weight{}, ErrOverflow
	}
	return Weight{mode: Fixed, fx: sum}, nil
}

// Sub returns w-o.
func (w Weight) Sub(o Weight) (Weight, error) {
	return w.Add(o.Neg())
}

// Neg returns -w.
func (w Weight) Neg() Weight {
	if w.mode == Arbitrary {
		return Weight{mode: Arbitrary, big: new(big.Int).Neg(w.big)}
	}
	return Weight{mode: Fixed, fx: -w.fx}
}

// Mul returns w*o, or ErrOverflow in fixed mode if the safe bound would be
// exceeded.
func (w Weight) Mul(o Weight) (Weight, error) {
	if w.mode == Arbitrary {
		return Weight{mode: Arbitrary, big: new(big.Int).Mul(w.big, o.big)}, nil
	}
	if w.fx == 0 || o.fx == 0 {
		return Weight{mode: Fixed, fx: 0}, nil
	}
	prod := w.fx * o.fx
	if prod/o.fx != w.fx {
		return Weight{}, ErrOverflow
	}
	if prod > fixedSafeBound || prod < -fixedSafeBound {
		return Weight{}, ErrOverflow
	}
	return Weight{mode: Fixed, fx: prod}, nil
}

// Max returns the larger of w, o.
func Max(w, o Weight) Weight {
	if w.Cmp(o) >= 0 {
		return w
	}
	return o
}

// Min returns the smaller of w, o.
func Min(w, o Weight) Weight {
	if w.Cmp(o) <= 0 {
		return w
	}
	return o
}

// PosInf and NegInf are sentinel weights for MIN/MAX empty-set values
// (ESV). Fixed mode represents them with a bound far inside the safe
// range so arithmetic against them still round-trips predictably;
// arbitrary mode uses a flag-free large magnitude since math/big has no
// native infinity.
var (
	posInfFixed = fixedSafeBound
	negInfFixed = -fixedSafeBound
)

// PosInf returns a weight representing +infinity (MIN aggregate's ESV).
func PosInf(mode Mode) Weight {
	if mode == Arbitrary {
		return Weight{mode: Arbitrary, big: big.NewInt(posInfFixed)}
	}
	return Weight{mode: Fixed, fx: posInfFixed}
}

// NegInf returns a weight representing -infinity (MAX aggregate's ESV).
func NegInf(mode Mode) Weight {
	if mode == Arbitrary {
		return Weight{mode: Arbitrary, big: big.NewInt(negInfFixed)}
	}
	return Weight{mode: Fixed, fx: negInfFixed}
}

func (w Weight) String() string {
	if w.mode == Arbitrary {
		return w.big.String()
	}
	return bigFromInt64(w.fx).String()
}

func bigFromInt64(v int64) *big.Int { return big.NewInt(v) }
