// Package priceutils
package priceutils

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// VolumeDecimals is the implied decimal count for fixed-point trade volumes.
const VolumeDecimals = 7

var ErrInvalidNumber = errors.New("value is not a finite number")

// Pow10 returns 10^n. n must be non-negative.
func Pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ToFixedPoint converts value to a scaled integer with the given number of
// implied decimals, rounding half away from zero.
func ToFixedPoint(value float64, decimals int) (*big.Int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidNumber
	}
	scaled := new(big.Float).SetPrec(256).SetFloat64(value)
	scaled.Mul(scaled, new(big.Float).SetInt(Pow10(decimals)))
	half := big.NewFloat(0.5)
	if scaled.Signbit() {
		scaled.Sub(scaled, half)
	} else {
		scaled.Add(scaled, half)
	}
	res, _ := scaled.Int(nil)
	return res, nil
}

// Invert returns the inverse of a fixed-point price at the same decimals,
// computed with 2*decimals precision so that small cross-rates do not
// truncate to zero. A zero price inverts to zero, which signals "no price"
// rather than failing on division by zero. Precision loss is truncation.
func Invert(price *big.Int, decimals int) *big.Int {
	if price.Sign() == 0 {
		return new(big.Int)
	}
	return new(big.Int).Quo(Pow10(decimals*2), price)
}

// VWAP computes quoteVolume/volume as a fixed-point price at the given
// decimals. Returns zero when either input is NaN or either scaled operand
// is zero.
func VWAP(volume, quoteVolume float64, decimals int) *big.Int {
	if math.IsNaN(volume) || math.IsNaN(quoteVolume) {
		return new(big.Int)
	}
	v, err := ToFixedPoint(volume, decimals)
	if err != nil {
		return new(big.Int)
	}
	// quote volume is scaled at doubled decimals so the quotient lands at
	// the requested precision
	qv, err := ToFixedPoint(quoteVolume, decimals*2)
	if err != nil {
		return new(big.Int)
	}
	if v.Sign() == 0 || qv.Sign() == 0 {
		return new(big.Int)
	}
	return new(big.Int).Quo(qv, v)
}

// VolumeToFixedPoint converts a stringified decimal amount to its scaled
// integer representation. Malformed input yields zero rather than an error:
// exchange payloads occasionally carry empty or garbage volume fields and a
// zero volume already means "no usable data" downstream.
func VolumeToFixedPoint(value string, decimals int) *big.Int {
	zero := new(big.Int)
	if value == "" {
		return zero
	}
	intPart, fracPart, _ := strings.Cut(value, ".")
	res, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return zero
	}
	res.Mul(res, Pow10(decimals))
	if fracPart == "" {
		return res
	}
	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	frac, ok := new(big.Int).SetString(fracPart+strings.Repeat("0", decimals-len(fracPart)), 10)
	if !ok {
		return zero
	}
	// res.Sign() misreports "-0.x" inputs, so take the sign from the text
	if strings.HasPrefix(intPart, "-") {
		return res.Sub(res, frac)
	}
	return res.Add(res, frac)
}

// FloatVolumeToFixedPoint converts a float amount to its scaled integer
// representation at the given decimals.
func FloatVolumeToFixedPoint(value float64, decimals int) *big.Int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return new(big.Int)
	}
	return VolumeToFixedPoint(strconv.FormatFloat(value, 'f', decimals, 64), decimals)
}

// Format renders a scaled integer as a plain decimal string.
func Format(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	abs := new(big.Int).Abs(value)
	quo, rem := new(big.Int).QuoRem(abs, Pow10(decimals), new(big.Int))
	sign := ""
	if value.Sign() < 0 {
		sign = "-"
	}
	if decimals == 0 {
		return sign + quo.String()
	}
	frac := strings.TrimRight(leftPad(rem.String(), decimals), "0")
	if frac == "" {
		return sign + quo.String()
	}
	return sign + quo.String() + "." + frac
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
