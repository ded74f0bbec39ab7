package logic

// Intn returns a non-negative pseudo-random int in [0, n).
// *math/rand.Rand satisfies it.
type Intn interface {
	Intn(n int) int
}

// Simulation is a synthetic bottle that gets lighter every tick.
// It lets the loop run without a load cell attached.
type Simulation struct {
	weight  float64
	minStep int
	maxStep int
	rnd     Intn
}

// NewSimulation starts a bottle at startGrams that loses a random amount in
// [minStep, maxStep) grams per Step. maxStep <= minStep means a fixed minStep.
func NewSimulation(startGrams float64, minStep, maxStep int, rnd Intn) *Simulation {
	if startGrams < 0 {
		startGrams = 0
	}
	return &Simulation{
		weight:  startGrams,
		minStep: minStep,
		maxStep: maxStep,
		rnd:     rnd,
	}
}

// Step advances the simulation and returns the new weight. Never negative;
// once zero it stays zero.
func (s *Simulation) Step() float64 {
	if s.weight <= 0 {
		s.weight = 0
		return 0
	}
	step := s.minStep
	if s.maxStep > s.minStep && s.rnd != nil {
		step += s.rnd.Intn(s.maxStep - s.minStep)
	}
	s.weight -= float64(step)
	if s.weight < 0 {
		s.weight = 0
	}
	return s.weight
}

// Weight returns the current simulated weight without advancing.
func (s *Simulation) Weight() float64 {
	return s.weight
}
