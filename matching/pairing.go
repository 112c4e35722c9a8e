package matching

import "errors"

var ErrAlreadyPaired = errors.New("matching: minutia already paired")

// MinutiaPair links a probe minutia to a candidate minutia by index.
type MinutiaPair struct {
	Probe     int `cbor:"probe"`
	Candidate int `cbor:"candidate"`
}

// PairInfo is one entry of a pairing.
type PairInfo struct {
	Pair MinutiaPair `cbor:"pair"`
	// Reference is the already paired minutia pair whose edge discovered this pair.
	// The root pair references itself.
	Reference MinutiaPair `cbor:"reference"`
	// SupportingEdges counts edges that confirmed this pair after it was added.
	SupportingEdges int `cbor:"supporting_edges"`
}

// MinutiaPairing is a one-to-one correspondence between probe and candidate minutiae,
// kept in discovery order.
type MinutiaPairing struct {
	pairs       []PairInfo
	byProbe     []int
	byCandidate []int
}

// NewMinutiaPairing returns an empty pairing sized for the two templates.
func NewMinutiaPairing(probeLen, candidateLen int) *MinutiaPairing {
	p := &MinutiaPairing{
		pairs:       make([]PairInfo, 0, min(probeLen, candidateLen)),
		byProbe:     make([]int, probeLen),
		byCandidate: make([]int, candidateLen),
	}
	p.reset()
	return p
}

func (p *MinutiaPairing) reset() {
	p.pairs = p.pairs[:0]
	for i := range p.byProbe {
		p.byProbe[i] = -1
	}
	for i := range p.byCandidate {
		p.byCandidate[i] = -1
	}
}

// Add appends a pair discovered from reference and returns its index.
func (p *MinutiaPairing) Add(pair, reference MinutiaPair) (int, error) {
	if p.byProbe[pair.Probe] >= 0 || p.byCandidate[pair.Candidate] >= 0 {
		return -1, ErrAlreadyPaired
	}
	index := len(p.pairs)
	p.pairs = append(p.pairs, PairInfo{Pair: pair, Reference: reference})
	p.byProbe[pair.Probe] = index
	p.byCandidate[pair.Candidate] = index
	return index, nil
}

// AddSupport records one more confirming edge for the pair at index.
func (p *MinutiaPairing) AddSupport(index int) {
	p.pairs[index].SupportingEdges++
}

// Count is the number of pairs.
func (p *MinutiaPairing) Count() int { return len(p.pairs) }

// At returns the pair at index in discovery order.
func (p *MinutiaPairing) At(index int) PairInfo { return p.pairs[index] }

// Pairs returns a copy of all pairs in discovery order.
func (p *MinutiaPairing) Pairs() []PairInfo {
	out := make([]PairInfo, len(p.pairs))
	copy(out, p.pairs)
	return out
}

// ByProbe returns the pair index holding the probe minutia, or -1.
func (p *MinutiaPairing) ByProbe(probe int) int { return p.byProbe[probe] }

// ByCandidate returns the pair index holding the candidate minutia, or -1.
func (p *MinutiaPairing) ByCandidate(candidate int) int { return p.byCandidate[candidate] }

// Clone returns an independent copy.
func (p *MinutiaPairing) Clone() *MinutiaPairing {
	return &MinutiaPairing{
		pairs:       append([]PairInfo(nil), p.pairs...),
		byProbe:     append([]int(nil), p.byProbe...),
		byCandidate: append([]int(nil), p.byCandidate...),
	}
}
