package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"time"
)

// Weight blob layout (little endian):
//
//	magic    [4]byte  "MNWT"
//	version  uint16   FormatVersion
//	dtype    uint8    1=float32, 2=float64
//	nlayers  uint16
//	layers:
//	  kind   uint8    LayerDense | LayerReLU
//	  dense: in uint32, out uint32, out*in weights (row-major), out biases
const FormatVersion uint16 = 1

var blobMagic = [4]byte{'M', 'N', 'W', 'T'}

const (
	dtypeFloat32 uint8 = 1
	dtypeFloat64 uint8 = 2
)

// maxDenseElems bounds a single layer so a corrupt header cannot trigger a
// huge allocation.
const maxDenseElems = 1 << 26

// IsNativeBlob reports whether b starts with the native weight format magic.
func IsNativeBlob(b []byte) bool {
	return len(b) >= len(blobMagic) && bytes.Equal(b[:len(blobMagic)], blobMagic[:])
}

// Decode turns a weight blob into a Loaded model. Native blobs decode into
// a Network; anything else is handed to the ONNX backend.
func Decode(b []byte) (*Loaded, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrDecode)
	}
	var (
		m   Model
		p   Precision
		err error
	)
	if IsNativeBlob(b) {
		var n *Network
		n, err = DecodeNetwork(b)
		if n != nil {
			m, p = n, n.Precision()
		}
	} else {
		m, err = decodeONNX(b)
		p = PrecisionONNX
	}
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return &Loaded{
		Model:     m,
		Precision: p,
		Digest:    hex.EncodeToString(sum[:]),
		Size:      len(b),
		LoadedAt:  time.Now(),
	}, nil
}

// DecodeNetwork parses a native weight blob.
func DecodeNetwork(b []byte) (*Network, error) {
	r := bytes.NewReader(b)
	var hdr struct {
		Magic   [4]byte
		Version uint16
		DType   uint8
		NLayers uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrDecode, err)
	}
	if hdr.Magic != blobMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrDecode, hdr.Magic[:])
	}
	if hdr.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrDecode, hdr.Version)
	}
	var prec Precision
	switch hdr.DType {
	case dtypeFloat32:
		prec = PrecisionFloat32
	case dtypeFloat64:
		prec = PrecisionFloat64
	default:
		return nil, fmt.Errorf("%w: unknown dtype %d", ErrDecode, hdr.DType)
	}

	layers := make([]Layer, 0, hdr.NLayers)
	for i := 0; i < int(hdr.NLayers); i++ {
		kind, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d kind: %v", ErrDecode, i, err)
		}
		switch LayerKind(kind) {
		case LayerReLU:
			layers = append(layers, ReLU())
		case LayerDense:
			var dims struct{ In, Out uint32 }
			if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
				return nil, fmt.Errorf("%w: layer %d dims: %v", ErrDecode, i, err)
			}
			if dims.In == 0 || dims.Out == 0 || uint64(dims.In)*uint64(dims.Out) > maxDenseElems {
				return nil, fmt.Errorf("%w: layer %d: invalid dims %dx%d", ErrDecode, i, dims.Out, dims.In)
			}
			in, out := int(dims.In), int(dims.Out)
			weights, err := readFloats(r, in*out, hdr.DType)
			if err != nil {
				return nil, fmt.Errorf("%w: layer %d weights: %v", ErrDecode, i, err)
			}
			bias, err := readFloats(r, out, hdr.DType)
			if err != nil {
				return nil, fmt.Errorf("%w: layer %d bias: %v", ErrDecode, i, err)
			}
			l, err := Dense(in, out, weights, bias)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDecode, err)
			}
			layers = append(layers, l)
		default:
			return nil, fmt.Errorf("%w: layer %d: unknown kind %d", ErrDecode, i, kind)
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecode, r.Len())
	}
	n, err := NewNetwork(prec, layers...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return n, nil
}

func readFloats(r *bytes.Reader, n int, dtype uint8) ([]float64, error) {
	width := 4
	if dtype == dtypeFloat64 {
		width = 8
	}
	if n < 0 || n > maxDenseElems || r.Len() < n*width {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n*width)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		if width == 4 {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		} else {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
	}
	return out, nil
}

// Encode serializes a Network in the native blob format using its precision.
func Encode(n *Network) ([]byte, error) {
	var dtype uint8
	switch n.precision {
	case PrecisionFloat32:
		dtype = dtypeFloat32
	case PrecisionFloat64:
		dtype = dtypeFloat64
	default:
		return nil, fmt.Errorf("encode: unsupported precision %q", n.precision)
	}
	var buf bytes.Buffer
	buf.Write(blobMagic[:])
	_ = binary.Write(&buf, binary.LittleEndian, FormatVersion)
	buf.WriteByte(dtype)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(n.layers)))
	for _, l := range n.layers {
		buf.WriteByte(byte(l.Kind))
		if l.Kind != LayerDense {
			continue
		}
		in, out := l.dims()
		_ = binary.Write(&buf, binary.LittleEndian, uint32(in))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(out))
		for r := 0; r < out; r++ {
			for c := 0; c < in; c++ {
				writeFloat(&buf, l.W.At(r, c), dtype)
			}
		}
		for r := 0; r < out; r++ {
			writeFloat(&buf, l.B.AtVec(r), dtype)
		}
	}
	return buf.Bytes(), nil
}

func writeFloat(buf *bytes.Buffer, v float64, dtype uint8) {
	var tmp [8]byte
	if dtype == dtypeFloat32 {
		binary.LittleEndian.PutUint32(tmp[:4], math.Float32bits(float32(v)))
		buf.Write(tmp[:4])
		return
	}
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	buf.Write(tmp[:])
}
