package wire

import (
	"fmt"
	"time"

	"github.com/tinylib/msgp/msgp"

	"ndresample/internal/models"
)

func appendFloats(o []byte, v []float64) []byte {
	o = msgp.AppendArrayHeader(o, uint32(len(v)))
	for _, f := range v {
		o = msgp.AppendFloat64(o, f)
	}
	return o
}

func readFloats(bts []byte) (v []float64, o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	v = make([]float64, n)
	for i := range v {
		v[i], bts, err = msgp.ReadFloat64Bytes(bts)
		if err != nil {
			return
		}
	}
	o = bts
	return
}

// EncodeFloats packs values for a unit or result payload.
func EncodeFloats(v []float64) []byte {
	return appendFloats(make([]byte, 0, 5+9*len(v)), v)
}

// DecodeFloats fills dst from a payload written by EncodeFloats.
func DecodeFloats(dst []float64, b []byte) error {
	v, rest, err := readFloats(b)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(v) != len(dst) || len(rest) != 0 {
		return fmt.Errorf("%w: %d values and %d trailing bytes, want %d values", ErrMalformed, len(v), len(rest), len(dst))
	}
	copy(dst, v)
	return nil
}

func appendPair(o []byte, a, b float64) []byte {
	o = msgp.AppendArrayHeader(o, 2)
	o = msgp.AppendFloat64(o, a)
	return msgp.AppendFloat64(o, b)
}

func appendIntPair(o []byte, a, b int) []byte {
	o = msgp.AppendArrayHeader(o, 2)
	o = msgp.AppendInt(o, a)
	return msgp.AppendInt(o, b)
}

func readPair(bts []byte) (p [2]float64, o []byte, err error) {
	var v []float64
	v, o, err = readFloats(bts)
	if err == nil && len(v) != 2 {
		err = msgp.ArrayError{Wanted: 2, Got: uint32(len(v))}
	}
	if err == nil {
		p = [2]float64{v[0], v[1]}
	}
	return
}

func readIntPair(bts []byte) (p [2]int, o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if n != 2 {
		err = msgp.ArrayError{Wanted: 2, Got: n}
		return
	}
	for i := range p {
		p[i], bts, err = msgp.ReadIntBytes(bts)
		if err != nil {
			return
		}
	}
	o = bts
	return
}

func appendPlan(o []byte, p models.InterpolationPlan) []byte {
	o = msgp.AppendArrayHeader(o, 5)
	for _, d := range p.Degree {
		o = msgp.AppendInt(o, int(d))
	}
	return msgp.AppendInt(o, int(p.Distance))
}

func readPlan(bts []byte) (p models.InterpolationPlan, o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if n != 5 {
		err = msgp.ArrayError{Wanted: 5, Got: n}
		return
	}
	var v int
	for i := range p.Degree {
		v, bts, err = msgp.ReadIntBytes(bts)
		if err != nil {
			return
		}
		p.Degree[i] = models.Degree(v)
	}
	v, bts, err = msgp.ReadIntBytes(bts)
	p.Distance = models.DistanceMethod(v)
	o = bts
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *SourceChunk) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "vol")
	o = msgp.AppendInt(o, z.Volume)
	o = msgp.AppendString(o, "vloc")
	o = msgp.AppendFloat64(o, z.VolumeLocation)
	o = msgp.AppendString(o, "first")
	o = msgp.AppendInt(o, z.FirstSlice)
	o = msgp.AppendString(o, "zloc")
	o = appendFloats(o, z.ZLocations)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *SourceChunk) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var sz uint32
	sz, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for sz > 0 {
		sz--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "vol":
			z.Volume, bts, err = msgp.ReadIntBytes(bts)
		case "vloc":
			z.VolumeLocation, bts, err = msgp.ReadFloat64Bytes(bts)
		case "first":
			z.FirstSlice, bts, err = msgp.ReadIntBytes(bts)
		case "zloc":
			z.ZLocations, bts, err = readFloats(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *SourceChunk) Msgsize() (s int) {
	s = msgp.MapHeaderSize + 4*(msgp.StringPrefixSize+5) + 2*msgp.IntSize + msgp.Float64Size
	s += msgp.ArrayHeaderSize + len(z.ZLocations)*msgp.Float64Size
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *WorkUnit) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 18)
	o = msgp.AppendString(o, "op")
	o = msgp.AppendInt(o, int(z.Op))
	o = msgp.AppendString(o, "job")
	o = msgp.AppendString(o, z.JobID)
	o = msgp.AppendString(o, "seq")
	o = msgp.AppendInt(o, z.Seq)
	o = msgp.AppendString(o, "plan")
	o = appendPlan(o, z.Plan)
	o = msgp.AppendString(o, "bits")
	o = msgp.AppendInt(o, int(z.BitDepth))
	o = msgp.AppendString(o, "signed")
	o = msgp.AppendBool(o, z.Signed)
	o = msgp.AppendString(o, "incount")
	o = appendIntPair(o, z.InCount[0], z.InCount[1])
	o = msgp.AppendString(o, "inpitch")
	o = appendPair(o, z.InPitch[0], z.InPitch[1])
	o = msgp.AppendString(o, "outcount")
	o = appendIntPair(o, z.OutCount[0], z.OutCount[1])
	o = msgp.AppendString(o, "outpitch")
	o = appendPair(o, z.OutPitch[0], z.OutPitch[1])
	o = msgp.AppendString(o, "outvol")
	o = msgp.AppendInt(o, z.OutVolume)
	o = msgp.AppendString(o, "outvloc")
	o = msgp.AppendFloat64(o, z.OutVolumeLocation)
	o = msgp.AppendString(o, "outz")
	o = msgp.AppendInt(o, z.OutFirstZ)
	o = msgp.AppendString(o, "outzloc")
	o = appendFloats(o, z.OutZLocations)
	o = msgp.AppendString(o, "sources")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Sources)))
	for i := range z.Sources {
		o, err = z.Sources[i].MarshalMsg(o)
		if err != nil {
			return
		}
	}
	o = msgp.AppendString(o, "slab")
	o = msgp.AppendInt(o, z.SlabDepth)
	o = msgp.AppendString(o, "payload")
	o = msgp.AppendBytes(o, z.Payload)
	o = msgp.AppendString(o, "version")
	o = msgp.AppendInt(o, Version)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *WorkUnit) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var sz uint32
	var v int
	sz, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for sz > 0 {
		sz--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "op":
			v, bts, err = msgp.ReadIntBytes(bts)
			z.Op = Op(v)
		case "job":
			z.JobID, bts, err = msgp.ReadStringBytes(bts)
		case "seq":
			z.Seq, bts, err = msgp.ReadIntBytes(bts)
		case "plan":
			z.Plan, bts, err = readPlan(bts)
		case "bits":
			v, bts, err = msgp.ReadIntBytes(bts)
			z.BitDepth = models.BitDepth(v)
		case "signed":
			z.Signed, bts, err = msgp.ReadBoolBytes(bts)
		case "incount":
			z.InCount, bts, err = readIntPair(bts)
		case "inpitch":
			z.InPitch, bts, err = readPair(bts)
		case "outcount":
			z.OutCount, bts, err = readIntPair(bts)
		case "outpitch":
			z.OutPitch, bts, err = readPair(bts)
		case "outvol":
			z.OutVolume, bts, err = msgp.ReadIntBytes(bts)
		case "outvloc":
			z.OutVolumeLocation, bts, err = msgp.ReadFloat64Bytes(bts)
		case "outz":
			z.OutFirstZ, bts, err = msgp.ReadIntBytes(bts)
		case "outzloc":
			z.OutZLocations, bts, err = readFloats(bts)
		case "sources":
			var n uint32
			n, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return
			}
			z.Sources = make([]SourceChunk, n)
			for i := range z.Sources {
				bts, err = z.Sources[i].UnmarshalMsg(bts)
				if err != nil {
					return
				}
			}
		case "slab":
			z.SlabDepth, bts, err = msgp.ReadIntBytes(bts)
		case "payload":
			z.Payload, bts, err = msgp.ReadBytesBytes(bts, z.Payload[:0])
		case "version":
			v, bts, err = msgp.ReadIntBytes(bts)
			if err == nil && v != Version {
				err = versionError(v)
			}
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *WorkUnit) Msgsize() (s int) {
	s = msgp.MapHeaderSize + 18*(msgp.StringPrefixSize+8)
	s += 9*msgp.IntSize + msgp.BoolSize + msgp.StringPrefixSize + len(z.JobID)
	s += msgp.ArrayHeaderSize + 5*msgp.IntSize
	s += 2 * (msgp.ArrayHeaderSize + 2*msgp.IntSize)
	s += 2 * (msgp.ArrayHeaderSize + 2*msgp.Float64Size)
	s += msgp.Float64Size
	s += msgp.ArrayHeaderSize + len(z.OutZLocations)*msgp.Float64Size
	s += msgp.ArrayHeaderSize
	for i := range z.Sources {
		s += z.Sources[i].Msgsize()
	}
	s += msgp.BytesPrefixSize + len(z.Payload)
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *ResultUnit) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 13)
	o = msgp.AppendString(o, "op")
	o = msgp.AppendInt(o, int(z.Op))
	o = msgp.AppendString(o, "job")
	o = msgp.AppendString(o, z.JobID)
	o = msgp.AppendString(o, "seq")
	o = msgp.AppendInt(o, z.Seq)
	o = msgp.AppendString(o, "outvol")
	o = msgp.AppendInt(o, z.OutVolume)
	o = msgp.AppendString(o, "outz")
	o = msgp.AppendInt(o, z.OutFirstZ)
	o = msgp.AppendString(o, "count")
	o = msgp.AppendInt(o, z.SliceCount)
	o = msgp.AppendString(o, "bits")
	o = msgp.AppendInt(o, int(z.BitDepth))
	o = msgp.AppendString(o, "payload")
	o = msgp.AppendBytes(o, z.Payload)
	o = msgp.AppendString(o, "min")
	o = msgp.AppendInt64(o, z.Min)
	o = msgp.AppendString(o, "max")
	o = msgp.AppendInt64(o, z.Max)
	o = msgp.AppendString(o, "elapsed")
	o = msgp.AppendInt64(o, int64(z.ComputeTime))
	o = msgp.AppendString(o, "err")
	o = msgp.AppendString(o, z.Err)
	o = msgp.AppendString(o, "version")
	o = msgp.AppendInt(o, Version)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *ResultUnit) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var sz uint32
	var v int
	sz, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for sz > 0 {
		sz--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "op":
			v, bts, err = msgp.ReadIntBytes(bts)
			z.Op = Op(v)
		case "job":
			z.JobID, bts, err = msgp.ReadStringBytes(bts)
		case "seq":
			z.Seq, bts, err = msgp.ReadIntBytes(bts)
		case "outvol":
			z.OutVolume, bts, err = msgp.ReadIntBytes(bts)
		case "outz":
			z.OutFirstZ, bts, err = msgp.ReadIntBytes(bts)
		case "count":
			z.SliceCount, bts, err = msgp.ReadIntBytes(bts)
		case "bits":
			v, bts, err = msgp.ReadIntBytes(bts)
			z.BitDepth = models.BitDepth(v)
		case "payload":
			z.Payload, bts, err = msgp.ReadBytesBytes(bts, z.Payload[:0])
		case "min":
			z.Min, bts, err = msgp.ReadInt64Bytes(bts)
		case "max":
			z.Max, bts, err = msgp.ReadInt64Bytes(bts)
		case "elapsed":
			var ns int64
			ns, bts, err = msgp.ReadInt64Bytes(bts)
			z.ComputeTime = time.Duration(ns)
		case "err":
			z.Err, bts, err = msgp.ReadStringBytes(bts)
		case "version":
			v, bts, err = msgp.ReadIntBytes(bts)
			if err == nil && v != Version {
				err = versionError(v)
			}
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *ResultUnit) Msgsize() (s int) {
	s = msgp.MapHeaderSize + 13*(msgp.StringPrefixSize+7)
	s += 7*msgp.IntSize + 3*msgp.Int64Size
	s += msgp.StringPrefixSize + len(z.JobID)
	s += msgp.StringPrefixSize + len(z.Err)
	s += msgp.BytesPrefixSize + len(z.Payload)
	return
}
