package repeater

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// A Record is the persisted outcome of one trial of a batch.
type Record struct {
	RunID   string
	Trial   int64
	Attempt int
	Seed    int64
	Result  Result
}

// Field numbers of the Record wire format.
const (
	fieldRunID protowire.Number = iota + 1
	fieldTrial
	fieldAttempt
	fieldSeed
	fieldSuccess
	fieldFailure
	fieldPhase
	fieldObservableA
	fieldObservableB
	fieldCorrectionLeft
	fieldCorrectionRight
	fieldBSMArms
	fieldLostPhotons
	fieldTotalPhotons
	fieldStabilizers
)

// MarshalBinary encodes r in the protocol buffer wire format.
func (r *Record) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldRunID, protowire.BytesType)
	b = protowire.AppendString(b, r.RunID)
	b = appendVarint(b, fieldTrial, uint64(r.Trial))
	b = appendVarint(b, fieldAttempt, uint64(r.Attempt))
	b = appendVarint(b, fieldSeed, protowire.EncodeZigZag(r.Seed))
	res := &r.Result
	b = appendVarint(b, fieldSuccess, protowire.EncodeBool(res.Success))
	b = appendVarint(b, fieldFailure, uint64(res.Failure))
	b = appendVarint(b, fieldPhase, uint64(res.Phase))
	b = appendVarint(b, fieldObservableA, protowire.EncodeZigZag(int64(res.ObservableA)))
	b = appendVarint(b, fieldObservableB, protowire.EncodeZigZag(int64(res.ObservableB)))
	b = appendVarint(b, fieldCorrectionLeft, protowire.EncodeBool(res.Correction.Left))
	b = appendVarint(b, fieldCorrectionRight, protowire.EncodeBool(res.Correction.Right))
	if len(res.BSMArms) > 0 {
		var packed []byte
		for _, k := range res.BSMArms {
			packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(k)))
		}
		b = protowire.AppendTag(b, fieldBSMArms, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	b = appendVarint(b, fieldLostPhotons, uint64(res.Stats.LostPhotons))
	b = appendVarint(b, fieldTotalPhotons, uint64(res.Stats.TotalPhotons))
	for _, s := range res.Stabilizers {
		b = protowire.AppendTag(b, fieldStabilizers, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}
	return b, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// UnmarshalBinary decodes a Record produced by MarshalBinary into r. Unknown
// fields are skipped.
func (r *Record) UnmarshalBinary(b []byte) error {
	*r = Record{}
	res := &r.Result
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldTrial:
				r.Trial = int64(v)
			case fieldAttempt:
				r.Attempt = int(v)
			case fieldSeed:
				r.Seed = protowire.DecodeZigZag(v)
			case fieldSuccess:
				res.Success = protowire.DecodeBool(v)
			case fieldFailure:
				res.Failure = Failure(v)
			case fieldPhase:
				res.Phase = Phase(v)
			case fieldObservableA:
				res.ObservableA = int(protowire.DecodeZigZag(v))
			case fieldObservableB:
				res.ObservableB = int(protowire.DecodeZigZag(v))
			case fieldCorrectionLeft:
				res.Correction.Left = protowire.DecodeBool(v)
			case fieldCorrectionRight:
				res.Correction.Right = protowire.DecodeBool(v)
			case fieldBSMArms:
				res.BSMArms = append(res.BSMArms, int(protowire.DecodeZigZag(v)))
			case fieldLostPhotons:
				res.Stats.LostPhotons = int(v)
			case fieldTotalPhotons:
				res.Stats.TotalPhotons = int(v)
			}
		case typ == protowire.BytesType && (num == fieldRunID || num == fieldStabilizers || num == fieldBSMArms):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldRunID:
				r.RunID = string(v)
			case fieldStabilizers:
				res.Stabilizers = append(res.Stabilizers, string(v))
			case fieldBSMArms:
				for len(v) > 0 {
					k, n := protowire.ConsumeVarint(v)
					if n < 0 {
						return protowire.ParseError(n)
					}
					v = v[n:]
					res.BSMArms = append(res.BSMArms, int(protowire.DecodeZigZag(k)))
				}
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// ErrChecksum is returned when a framed record fails its integrity check.
var ErrChecksum = errors.New("record checksum mismatch")

// A RecordWriter writes framed Records to an underlying stream. The structure
// of the frame is trivial: record-length | record | crc32(record). A
// RecordWriter is not safe for concurrent use.
type RecordWriter struct {
	w io.Writer
}

// NewRecordWriter returns a RecordWriter writing to w.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

func (rw *RecordWriter) Write(r *Record) error {
	marshalled, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	if err := binary.Write(rw.w, binary.LittleEndian, int32(len(marshalled))); err != nil {
		return err
	}
	if _, err := rw.w.Write(marshalled); err != nil {
		return err
	}
	return binary.Write(rw.w, binary.LittleEndian, crc32.ChecksumIEEE(marshalled))
}

// A RecordReader reads Records framed by a RecordWriter.
type RecordReader struct {
	r io.Reader
}

// NewRecordReader returns a RecordReader reading from r.
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: r}
}

// Read reads the next Record into r. It returns io.EOF when the stream ends
// cleanly between records.
func (rr *RecordReader) Read(r *Record) error {
	var mLen int32
	if err := binary.Read(rr.r, binary.LittleEndian, &mLen); err != nil {
		return err
	}
	if mLen < 0 {
		return fmt.Errorf("invalid record length %d", mLen)
	}
	marshalled := make([]byte, mLen)
	if _, err := io.ReadFull(rr.r, marshalled); err != nil {
		return err
	}
	var sum uint32
	if err := binary.Read(rr.r, binary.LittleEndian, &sum); err != nil {
		return err
	}
	if want := crc32.ChecksumIEEE(marshalled); sum != want {
		return fmt.Errorf("%w: got %08x, expected %08x", ErrChecksum, sum, want)
	}
	return r.UnmarshalBinary(marshalled)
}
