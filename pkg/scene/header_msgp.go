package scene

import (
	"github.com/tinylib/msgp/msgp"

	"ndresample/internal/models"
)

// MarshalMsg implements msgp.Marshaler
func (z *Header) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	d := z.Descriptor
	o = msgp.AppendMapHeader(o, 12)
	o = msgp.AppendString(o, "dims")
	o = msgp.AppendInt(o, d.Dimensions)
	o = msgp.AppendString(o, "w")
	o = msgp.AppendInt(o, d.Width)
	o = msgp.AppendString(o, "h")
	o = msgp.AppendInt(o, d.Height)
	o = msgp.AppendString(o, "voxel")
	o = msgp.AppendArrayHeader(o, 4)
	o = msgp.AppendFloat64(o, d.VoxelSize.X)
	o = msgp.AppendFloat64(o, d.VoxelSize.Y)
	o = msgp.AppendFloat64(o, d.VoxelSize.Z)
	o = msgp.AppendFloat64(o, d.VoxelSize.T)
	o = msgp.AppendString(o, "vloc")
	o = appendFloats(o, d.VolumeLocations)
	o = msgp.AppendString(o, "sloc")
	o = msgp.AppendArrayHeader(o, uint32(len(d.SliceLocations)))
	for _, locs := range d.SliceLocations {
		o = appendFloats(o, locs)
	}
	o = msgp.AppendString(o, "bits")
	o = msgp.AppendInt(o, int(d.BitDepth))
	o = msgp.AppendString(o, "signed")
	o = msgp.AppendBool(o, d.Signed)
	o = msgp.AppendString(o, "min")
	o = msgp.AppendInt64(o, z.Min)
	o = msgp.AppendString(o, "max")
	o = msgp.AppendInt64(o, z.Max)
	o = msgp.AppendString(o, "desc")
	o = msgp.AppendString(o, z.Description)
	o = msgp.AppendString(o, "version")
	o = msgp.AppendInt(o, z.Version)
	return
}

func appendFloats(o []byte, v []float64) []byte {
	o = msgp.AppendArrayHeader(o, uint32(len(v)))
	for _, f := range v {
		o = msgp.AppendFloat64(o, f)
	}
	return o
}

func readFloats(bts []byte) ([]float64, []byte, error) {
	n, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, bts, err
	}
	v := make([]float64, n)
	for i := range v {
		v[i], bts, err = msgp.ReadFloat64Bytes(bts)
		if err != nil {
			return nil, bts, err
		}
	}
	return v, bts, nil
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Header) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var sz uint32
	sz, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	d := &models.VolumeDescriptor{}
	z.Descriptor = d
	for sz > 0 {
		sz--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "dims":
			d.Dimensions, bts, err = msgp.ReadIntBytes(bts)
		case "w":
			d.Width, bts, err = msgp.ReadIntBytes(bts)
		case "h":
			d.Height, bts, err = msgp.ReadIntBytes(bts)
		case "voxel":
			var v []float64
			v, bts, err = readFloats(bts)
			if err == nil && len(v) != 4 {
				err = msgp.ArrayError{Wanted: 4, Got: uint32(len(v))}
			}
			if err == nil {
				d.VoxelSize = models.VoxelSize{X: v[0], Y: v[1], Z: v[2], T: v[3]}
			}
		case "vloc":
			d.VolumeLocations, bts, err = readFloats(bts)
		case "sloc":
			var n uint32
			n, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return
			}
			d.SliceLocations = make([][]float64, n)
			d.SlicesPerVolume = make([]int, n)
			for i := range d.SliceLocations {
				d.SliceLocations[i], bts, err = readFloats(bts)
				if err != nil {
					return
				}
				d.SlicesPerVolume[i] = len(d.SliceLocations[i])
			}
		case "bits":
			var bits int
			bits, bts, err = msgp.ReadIntBytes(bts)
			d.BitDepth = models.BitDepth(bits)
		case "signed":
			d.Signed, bts, err = msgp.ReadBoolBytes(bts)
		case "min":
			z.Min, bts, err = msgp.ReadInt64Bytes(bts)
		case "max":
			z.Max, bts, err = msgp.ReadInt64Bytes(bts)
		case "desc":
			z.Description, bts, err = msgp.ReadStringBytes(bts)
		case "version":
			z.Version, bts, err = msgp.ReadIntBytes(bts)
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
func (z *Header) Msgsize() (s int) {
	d := z.Descriptor
	s = msgp.MapHeaderSize + 12*(msgp.StringPrefixSize+7)
	s += 4*msgp.IntSize + msgp.BoolSize + 2*msgp.Int64Size
	s += msgp.ArrayHeaderSize + 4*msgp.Float64Size
	s += msgp.ArrayHeaderSize + len(d.VolumeLocations)*msgp.Float64Size
	s += msgp.ArrayHeaderSize
	for _, locs := range d.SliceLocations {
		s += msgp.ArrayHeaderSize + len(locs)*msgp.Float64Size
	}
	s += msgp.StringPrefixSize + len(z.Description) + msgp.IntSize
	return
}
