package carstate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"gm-can-core/values"
)

// SpeedFilter turns the raw wheel speed average into filtered speed and
// acceleration.
type SpeedFilter interface {
	Update(vEgoRaw float64) (vEgo, aEgo float64)
	Reset(v float64)
}

// Steady-state gain of the 2-state speed filter at 100 Hz.
const (
	speedKFGainV = 0.12287673
	speedKFGainA = 0.29666309

	// Jumps larger than this (m/s) reinitialise the filter instead of being
	// tracked, so a car starting at speed does not report a huge aEgo.
	speedKFResetThreshold = 2.0
)

// SpeedKF is a constant-gain Kalman filter over [v, a] with a constant
// acceleration model: x' = (A - K*C*A) x + K z.
type SpeedKF struct {
	x  *mat.VecDense
	ak *mat.Dense
	k  *mat.VecDense

	tmp *mat.VecDense
}

func NewSpeedKF() *SpeedKF {
	a := mat.NewDense(2, 2, []float64{
		1, values.DtCtrl,
		0, 1,
	})
	c := mat.NewDense(1, 2, []float64{1, 0})
	k := mat.NewVecDense(2, []float64{speedKFGainV, speedKFGainA})

	var ca mat.Dense
	ca.Mul(c, a)
	var kca mat.Dense
	kca.Mul(k, &ca)
	ak := mat.NewDense(2, 2, nil)
	ak.Sub(a, &kca)

	return &SpeedKF{
		x:   mat.NewVecDense(2, nil),
		ak:  ak,
		k:   k,
		tmp: mat.NewVecDense(2, nil),
	}
}

func (f *SpeedKF) Reset(v float64) {
	f.x.SetVec(0, v)
	f.x.SetVec(1, 0)
}

func (f *SpeedKF) Update(vEgoRaw float64) (float64, float64) {
	if math.IsNaN(vEgoRaw) || math.IsInf(vEgoRaw, 0) {
		return f.x.AtVec(0), f.x.AtVec(1)
	}
	if math.Abs(vEgoRaw-f.x.AtVec(0)) > speedKFResetThreshold {
		f.Reset(vEgoRaw)
	}
	f.tmp.MulVec(f.ak, f.x)
	f.x.AddScaledVec(f.tmp, vEgoRaw, f.k)
	return f.x.AtVec(0), f.x.AtVec(1)
}
