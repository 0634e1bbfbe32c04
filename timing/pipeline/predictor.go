package pipeline

// Predictor is the interface the pipeline's IF stage consults under
// control-policy dynamic-predict. Both the one-bit and two-bit variants
// share it, along with the branch target buffer that backs target
// prediction for either.
type Predictor interface {
	// Predict returns the taken/not-taken prediction for a branch at pc.
	Predict(pc uint64) Prediction
	// Update resolves the prediction with the actual outcome once the
	// branch reaches EX.
	Update(pc uint64, taken bool, target uint64)
	// Stats reports running accuracy counters.
	Stats() PredictorStats
	// Reset clears all predictor and BTB state.
	Reset()
}

// PredictorConfig sizes the BHT and BTB shared by both predictor variants.
type PredictorConfig struct {
	// BHTSize is the number of entries in the Branch History Table. Must
	// be a power of two. Default 1024.
	BHTSize uint32
	// BTBSize is the number of entries in the Branch Target Buffer. Must
	// be a power of two. Default 256.
	BTBSize uint32
}

// DefaultPredictorConfig returns the sizing this simulator fixes absent
// any source mandating otherwise: 1024 BHT entries, 256 BTB entries.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{BHTSize: 1024, BTBSize: 256}
}

// PredictorStats holds running accuracy counters for a Predictor.
type PredictorStats struct {
	Predictions    uint64
	Correct        uint64
	Mispredictions uint64
	BTBHits        uint64
	BTBMisses      uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s PredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s PredictorStats) MispredictionRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Predictions) * 100
}

// BTBHitRate returns the BTB hit rate as a percentage.
func (s PredictorStats) BTBHitRate() float64 {
	total := s.BTBHits + s.BTBMisses
	if total == 0 {
		return 0
	}
	return float64(s.BTBHits) / float64(total) * 100
}

// Prediction is the IF-stage-visible result of consulting a Predictor: a
// taken/not-taken call, plus a target address when the BTB has one on
// record. A BTB miss with a taken prediction still redirects fetch to
// not-taken, since no target is known to redirect to.
type Prediction struct {
	Taken       bool
	Target      uint64
	TargetKnown bool
}

// btb is the branch target buffer shared by both predictor variants,
// indexed by (pc>>2) mod size and tagged by the full pc to detect
// aliasing between entries that share an index.
type btb struct {
	entries []btbEntry
	valid   []bool
	size    uint32
}

type btbEntry struct {
	pc     uint64
	target uint64
}

func newBTB(size uint32) *btb {
	if size == 0 {
		size = 256
	}
	return &btb{entries: make([]btbEntry, size), valid: make([]bool, size), size: size}
}

func (b *btb) index(pc uint64) uint32 {
	return uint32((pc >> 2) % uint64(b.size))
}

func (b *btb) lookup(pc uint64) (uint64, bool) {
	idx := b.index(pc)
	if b.valid[idx] && b.entries[idx].pc == pc {
		return b.entries[idx].target, true
	}
	return 0, false
}

func (b *btb) record(pc, target uint64) {
	idx := b.index(pc)
	b.entries[idx] = btbEntry{pc: pc, target: target}
	b.valid[idx] = true
}

func (b *btb) reset() {
	for i := range b.valid {
		b.valid[i] = false
	}
}

// OneBitPredictor is a direct-mapped table of taken/not-taken bits,
// initialized to not-taken; a resolution simply overwrites the bit with
// the actual outcome.
type OneBitPredictor struct {
	bits  []bool
	size  uint32
	table *btb
	stats PredictorStats
}

// NewOneBitPredictor creates a one-bit predictor with the given sizing.
func NewOneBitPredictor(cfg PredictorConfig) *OneBitPredictor {
	bhtSize := cfg.BHTSize
	if bhtSize == 0 {
		bhtSize = 1024
	}
	return &OneBitPredictor{
		bits:  make([]bool, bhtSize),
		size:  bhtSize,
		table: newBTB(cfg.BTBSize),
	}
}

func (p *OneBitPredictor) index(pc uint64) uint32 {
	return uint32((pc >> 2) % uint64(p.size))
}

// Predict implements Predictor.
func (p *OneBitPredictor) Predict(pc uint64) Prediction {
	pred := Prediction{Taken: p.bits[p.index(pc)]}
	if target, ok := p.table.lookup(pc); ok {
		pred.Target = target
		pred.TargetKnown = true
		p.stats.BTBHits++
	} else {
		p.stats.BTBMisses++
	}
	p.stats.Predictions++
	return pred
}

// Update implements Predictor.
func (p *OneBitPredictor) Update(pc uint64, taken bool, target uint64) {
	idx := p.index(pc)
	if p.bits[idx] == taken {
		p.stats.Correct++
	} else {
		p.stats.Mispredictions++
	}
	p.bits[idx] = taken
	if taken {
		p.table.record(pc, target)
	}
}

// Stats implements Predictor.
func (p *OneBitPredictor) Stats() PredictorStats { return p.stats }

// Reset implements Predictor.
func (p *OneBitPredictor) Reset() {
	for i := range p.bits {
		p.bits[i] = false
	}
	p.table.reset()
	p.stats = PredictorStats{}
}

// Two-bit saturating counter states, per §4.8: the high bit is the
// prediction.
const (
	stateStronglyNotTaken uint8 = iota
	stateWeaklyNotTaken
	stateWeaklyTaken
	stateStronglyTaken
)

// TwoBitPredictor is a direct-mapped table of 2-bit saturating counters,
// initialized to weakly-not-taken. A resolution moves the counter exactly
// one step toward the actual outcome, saturating at the ends — the
// textbook monotonic transition table, not the non-monotonic jump table
// some reference implementations of this predictor use.
type TwoBitPredictor struct {
	counters []uint8
	size     uint32
	table    *btb
	stats    PredictorStats
}

// NewTwoBitPredictor creates a two-bit predictor with the given sizing.
func NewTwoBitPredictor(cfg PredictorConfig) *TwoBitPredictor {
	bhtSize := cfg.BHTSize
	if bhtSize == 0 {
		bhtSize = 1024
	}
	counters := make([]uint8, bhtSize)
	for i := range counters {
		counters[i] = stateWeaklyNotTaken
	}
	return &TwoBitPredictor{
		counters: counters,
		size:     bhtSize,
		table:    newBTB(cfg.BTBSize),
	}
}

func (p *TwoBitPredictor) index(pc uint64) uint32 {
	return uint32((pc >> 2) % uint64(p.size))
}

// Predict implements Predictor.
func (p *TwoBitPredictor) Predict(pc uint64) Prediction {
	counter := p.counters[p.index(pc)]
	pred := Prediction{Taken: counter >= stateWeaklyTaken}
	if target, ok := p.table.lookup(pc); ok {
		pred.Target = target
		pred.TargetKnown = true
		p.stats.BTBHits++
	} else {
		p.stats.BTBMisses++
	}
	p.stats.Predictions++
	return pred
}

// Update implements Predictor.
func (p *TwoBitPredictor) Update(pc uint64, taken bool, target uint64) {
	idx := p.index(pc)
	counter := p.counters[idx]
	predicted := counter >= stateWeaklyTaken
	if predicted == taken {
		p.stats.Correct++
	} else {
		p.stats.Mispredictions++
	}

	switch {
	case taken && counter < stateStronglyTaken:
		p.counters[idx] = counter + 1
	case !taken && counter > stateStronglyNotTaken:
		p.counters[idx] = counter - 1
	}

	if taken {
		p.table.record(pc, target)
	}
}

// Stats implements Predictor.
func (p *TwoBitPredictor) Stats() PredictorStats { return p.stats }

// Reset implements Predictor.
func (p *TwoBitPredictor) Reset() {
	for i := range p.counters {
		p.counters[i] = stateWeaklyNotTaken
	}
	p.table.reset()
	p.stats = PredictorStats{}
}
