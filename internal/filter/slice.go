package filter

import "github.com/rzbill/geyserd/internal/message"

// Project applies the set's accounts data slices to m. Messages without
// account data are returned as is; m itself is never modified.
func (s *Set) Project(m *message.Message) *message.Message {
	if s == nil || len(s.dataSlices) == 0 || m == nil {
		return m
	}
	switch m.Kind {
	case message.KindAccount:
		return m.WithAccount(s.sliceAccount(m.Account))
	case message.KindBlock:
		if len(m.Block.Accounts) == 0 {
			return m
		}
		b := *m.Block
		b.Accounts = make([]*message.AccountInfo, len(m.Block.Accounts))
		for i, a := range m.Block.Accounts {
			b.Accounts[i] = s.sliceAccount(a)
		}
		return m.WithBlock(&b)
	}
	return m
}

func (s *Set) sliceAccount(a *message.AccountInfo) *message.AccountInfo {
	cp := *a
	cp.Data = sliceData(a.Data, s.dataSlices)
	return &cp
}

// sliceData concatenates the in-range parts of slices. Lengths are clamped
// to the data so the result never exceeds len(data).
func sliceData(data []byte, slices []DataSlice) []byte {
	size := uint64(len(data))
	var n uint64
	for _, sl := range slices {
		if sl.Offset < size {
			n += min(sl.Length, size-sl.Offset)
		}
	}
	out := make([]byte, 0, n)
	for _, sl := range slices {
		if sl.Offset >= size {
			continue
		}
		end := sl.Offset + min(sl.Length, size-sl.Offset)
		out = append(out, data[sl.Offset:end]...)
	}
	return out
}
