package app

// Aggregator collects per-question scores for one session.
type Aggregator struct {
	scores []float64
	sum    float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Record(score float64) {
	a.scores = append(a.scores, score)
	a.sum += score
}

// Mean returns the average recorded score, or exactly 0 when nothing is recorded.
func (a *Aggregator) Mean() float64 {
	if len(a.scores) == 0 {
		return 0
	}
	return a.sum / float64(len(a.scores))
}

func (a *Aggregator) Reset() {
	a.scores = nil
	a.sum = 0
}

func (a *Aggregator) Len() int {
	return len(a.scores)
}

// Scores returns a copy of the recorded scores in order.
func (a *Aggregator) Scores() []float64 {
	out := make([]float64, len(a.scores))
	copy(out, a.scores)
	return out
}
