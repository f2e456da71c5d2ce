package fdb

import (
	fdbwasm "github.com/wippyai/fdb-wasm"
	"github.com/wippyai/fdb-wasm/errors"
	"github.com/wippyai/fdb-wasm/internal/unaligned"
	"github.com/wippyai/fdb-wasm/pool"
)

// Foreign record layouts, wasm32 with #pragma pack(4).

type rawKey struct {
	Ptr uint32
	Len int32
}

type rawKeyValue struct {
	Key   rawKey
	Value rawKey
}

type rawKeySelector struct {
	Key     rawKey
	OrEqual int32
	Offset  int32
}

type rawGetRange struct {
	Begin    rawKeySelector
	End      rawKeySelector
	Data     uint32
	Size     int32
	Capacity int32
}

type rawMappedKeyValue struct {
	Key    rawKey
	Value  rawKey
	Range  rawGetRange
	Buffer [32]byte
}

// span checks that a foreign byte range can be read in full.
func span(mem fdbwasm.Memory, s rawKey, what string) error {
	switch {
	case s.Len < 0:
		return errors.New(errors.PhaseView, errors.KindInvalidSpan).
			Span(s.Ptr, 0).
			Value(s.Len).
			Detailf("%s length %d", what, s.Len).
			Build()
	case s.Len == 0:
		return nil
	case s.Ptr == 0:
		return errors.New(errors.PhaseView, errors.KindNilPointer).
			Value(s.Len).
			Detailf("%s of %d bytes at null", what, s.Len).
			Build()
	}
	if _, err := mem.Read(s.Ptr, uint32(s.Len)); err != nil {
		return errors.New(errors.PhaseView, errors.KindOutOfBounds).
			Span(s.Ptr, uint32(s.Len)).
			Detail(what).
			Cause(err).
			Build()
	}
	return nil
}

func (k rawKey) validate(mem fdbwasm.Memory) error {
	return span(mem, k, "key")
}

func (kv rawKeyValue) validate(mem fdbwasm.Memory) error {
	if err := span(mem, kv.Key, "key"); err != nil {
		return err
	}
	return span(mem, kv.Value, "value")
}

func (m rawMappedKeyValue) validate(mem fdbwasm.Memory) error {
	checks := []struct {
		s    rawKey
		what string
	}{
		{m.Key, "parent key"},
		{m.Value, "parent value"},
		{m.Range.Begin.Key, "range begin key"},
		{m.Range.End.Key, "range end key"},
	}
	for _, c := range checks {
		if err := span(mem, c.s, c.what); err != nil {
			return err
		}
	}

	children, err := unaligned.Copy[rawKeyValue](mem, m.Range.Data, m.Range.Size, pool.Heap)
	if err != nil {
		return err
	}
	defer children.Free()

	recs := children.Records()
	for i := range recs {
		if err := recs[i].validate(mem); err != nil {
			return errors.New(errors.PhaseView, errors.KindInvalidInput).
				Detailf("range child %d", i).
				Cause(err).
				Build()
		}
	}
	return nil
}
