package merkle

import (
	"encoding/binary"
	"fmt"
)

// Wire layout of a batch proof:
//
//	leafCount(u32) || n(u32) || indices(u32 * n) || leaves(32B * n) || root(32B)
//
// Big-endian throughout. n always equals leafCount for proofs produced by
// Commit, but the decoder does not assume it.

func marshalProof(p *Proof) []byte {
	buf := make([]byte, 0, 8+4*len(p.Indices)+32*len(p.Leaves)+32)

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], p.LeafCount)
	buf = append(buf, u32[:]...)
	binary.BigEndian.PutUint32(u32[:], uint32(len(p.Indices)))
	buf = append(buf, u32[:]...)

	for _, idx := range p.Indices {
		binary.BigEndian.PutUint32(u32[:], uint32(idx))
		buf = append(buf, u32[:]...)
	}
	for _, leaf := range p.Leaves {
		buf = append(buf, leaf[:]...)
	}
	buf = append(buf, p.Root[:]...)

	return buf
}

func unmarshalProof(data []byte) (*Proof, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("proof too short: %d bytes", len(data))
	}

	leafCount := binary.BigEndian.Uint32(data[0:4])
	n := binary.BigEndian.Uint32(data[4:8])

	want := 8 + 4*int(n) + 32*int(n) + 32
	if len(data) != want {
		return nil, fmt.Errorf("proof length mismatch: got %d, want %d", len(data), want)
	}

	p := &Proof{
		LeafCount: leafCount,
		Indices:   make([]int, n),
		Leaves:    make([][32]byte, n),
	}

	off := 8
	for i := 0; i < int(n); i++ {
		p.Indices[i] = int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
	}
	for i := 0; i < int(n); i++ {
		copy(p.Leaves[i][:], data[off:off+32])
		off += 32
	}
	copy(p.Root[:], data[off:off+32])

	return p, nil
}
