package dwell

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

// Noise weights relative to box height, the same used by ByteTrack
const (
	stdWeightPosition = 1.0 / 20
	stdWeightVelocity = 1.0 / 160
)

// kalman is a constant velocity Kalman filter over a box measured as
// center x, center y, aspect ratio and height.  The state holds those four
// values followed by their velocities.
type kalman struct {
	stdPos float64
	stdVel float64
	// motion is the 8x8 state transition for a step of one frame
	motion *mat.Dense
	// update is the 4x8 projection from state to measurement space
	update *mat.Dense
}

// kalmanState is the filtered state of one track
type kalmanState struct {
	mean *mat.VecDense
	cov  *mat.Dense
}

func newKalman(stdPos, stdVel float64) *kalman {

	motion := mat.NewDense(8, 8, nil)

	for i := 0; i < 8; i++ {
		motion.Set(i, i, 1)
	}

	for i := 0; i < 4; i++ {
		motion.Set(i, 4+i, 1)
	}

	update := mat.NewDense(4, 8, nil)

	for i := 0; i < 4; i++ {
		update.Set(i, i, 1)
	}

	return &kalman{
		stdPos: stdPos,
		stdVel: stdVel,
		motion: motion,
		update: update,
	}
}

// diagonal returns a square matrix with the squares of std on its diagonal
func diagonal(std []float64) *mat.Dense {
	d := mat.NewDense(len(std), len(std), nil)
	for i, v := range std {
		d.Set(i, i, v*v)
	}
	return d
}

// initiate creates the state of a new track from its first measurement with
// zero velocity
func (k *kalman) initiate(m [4]float64) *kalmanState {

	mean := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		mean.SetVec(i, m[i])
	}

	h := m[3]

	cov := diagonal([]float64{
		2 * k.stdPos * h, 2 * k.stdPos * h, 1e-2, 2 * k.stdPos * h,
		10 * k.stdVel * h, 10 * k.stdVel * h, 1e-5, 10 * k.stdVel * h,
	})

	return &kalmanState{mean: mean, cov: cov}
}

// predict moves the state forward one frame
func (k *kalman) predict(s *kalmanState) {

	h := s.mean.AtVec(3)

	noise := diagonal([]float64{
		k.stdPos * h, k.stdPos * h, 1e-2, k.stdPos * h,
		k.stdVel * h, k.stdVel * h, 1e-5, k.stdVel * h,
	})

	mean := mat.NewVecDense(8, nil)
	mean.MulVec(k.motion, s.mean)

	var mp, cov mat.Dense
	mp.Mul(k.motion, s.cov)
	cov.Mul(&mp, k.motion.T())
	cov.Add(&cov, noise)

	s.mean = mean
	s.cov = &cov
}

// project returns the state mean and covariance in measurement space
func (k *kalman) project(s *kalmanState) (*mat.VecDense, *mat.SymDense) {

	h := s.mean.AtVec(3)
	std := []float64{k.stdPos * h, k.stdPos * h, 1e-1, k.stdPos * h}

	mean := mat.NewVecDense(4, nil)
	mean.MulVec(k.update, s.mean)

	var tmp, proj mat.Dense
	tmp.Mul(k.update, s.cov)
	proj.Mul(&tmp, k.update.T())

	cov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			v := proj.At(i, j)
			if i == j {
				v += std[i] * std[i]
			}
			cov.SetSym(i, j, v)
		}
	}

	return mean, cov
}

// correct folds a measurement into the state
func (k *kalman) correct(s *kalmanState, m [4]float64) error {

	projMean, projCov := k.project(s)

	var chol mat.Cholesky

	if ok := chol.Factorize(projCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// gain is solved as (P H^T) S^-1 through the transpose S^-1 (H P^T)
	var pht mat.Dense
	pht.Mul(s.cov, k.update.T())

	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, pht.T()); err != nil {
		return errors.Wrap(err, "failed to compute kalman gain")
	}

	gain := gainT.T()

	innovation := mat.NewVecDense(4, nil)

	for i := 0; i < 4; i++ {
		innovation.SetVec(i, m[i]-projMean.AtVec(i))
	}

	var step mat.VecDense
	step.MulVec(gain, innovation)
	s.mean.AddVec(s.mean, &step)

	// P - K S K^T
	var ks, ksk, cov mat.Dense
	ks.Mul(gain, projCov)
	ksk.Mul(&ks, &gainT)
	cov.Sub(s.cov, &ksk)

	s.cov = &cov

	return nil
}

// Smoother filters the boxes of each track over time to remove detector
// jitter, so objects sitting on the ROI edge do not flap in and out
type Smoother struct {
	kf     *kalman
	states map[uint64]*kalmanState
}

// NewSmoother returns a Smoother with no track history
func NewSmoother() *Smoother {
	return &Smoother{
		kf:     newKalman(stdWeightPosition, stdWeightVelocity),
		states: make(map[uint64]*kalmanState),
	}
}

func measure(b Box) [4]float64 {
	cx, cy := b.Center()
	return [4]float64{cx, cy, b.Width / b.Height, b.Height}
}

func fromState(s *kalmanState) Box {
	cx, cy := s.mean.AtVec(0), s.mean.AtVec(1)
	h := s.mean.AtVec(3)
	w := s.mean.AtVec(2) * h

	return Box{Left: cx - w/2, Top: cy - h/2, Width: w, Height: h}
}

// Smooth returns the filtered box of a track given its latest measured box.
// The first box of a track is returned unchanged.  Boxes without a
// positive height can not be filtered and are also returned unchanged.
func (s *Smoother) Smooth(id uint64, box Box) Box {

	if box.Height <= 0 || box.Width <= 0 {
		return box
	}

	m := measure(box)
	st, exists := s.states[id]

	if !exists {
		s.states[id] = s.kf.initiate(m)
		return box
	}

	s.kf.predict(st)

	if err := s.kf.correct(st, m); err != nil {
		// restart the filter from this measurement
		s.states[id] = s.kf.initiate(m)
		return box
	}

	return fromState(st)
}

// Forget drops the filter state of a track
func (s *Smoother) Forget(id uint64) {
	delete(s.states, id)
}

// Len returns the number of tracks with filter state
func (s *Smoother) Len() int {
	return len(s.states)
}
