package challenge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// SignalVariable is the MAT variable that holds WFDB signal samples
const SignalVariable = "val"

// maxMatElements bounds a single matrix to protect against corrupt headers
const maxMatElements = 1 << 28

// ReadMat4 reads the named numeric matrix from a MATLAB level 4 file.
// When name is empty the first matrix is returned. Both byte orders and
// the double, single, int32, int16, uint16 and uint8 storage types are
// supported; imaginary parts are skipped.
func ReadMat4(r io.Reader, name string) (*mat.Dense, error) {
	for {
		hdr, err := readMat4Header(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("variable %q not found", name)
			}
			return nil, err
		}

		if name != "" && hdr.name != name {
			if err := skipMat4Data(r, hdr); err != nil {
				return nil, err
			}
			continue
		}

		return readMat4Data(r, hdr)
	}
}

type mat4Header struct {
	order     binary.ByteOrder
	precision int
	rows      int
	cols      int
	imaginary bool
	name      string
}

func (h mat4Header) elementSize() int {
	switch h.precision {
	case 0:
		return 8
	case 1, 2:
		return 4
	case 3, 4:
		return 2
	default:
		return 1
	}
}

func readMat4Header(r io.Reader) (mat4Header, error) {
	var raw [20]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return mat4Header{}, fmt.Errorf("truncated MAT header: %w", err)
		}
		return mat4Header{}, err
	}

	// The type field is < 5000 in its own byte order, which tells the order apart
	var order binary.ByteOrder = binary.LittleEndian
	mopt := int32(binary.LittleEndian.Uint32(raw[0:4]))
	if mopt < 0 || mopt >= 5000 {
		order = binary.BigEndian
		mopt = int32(binary.BigEndian.Uint32(raw[0:4]))
	}
	if mopt < 0 || mopt >= 5000 {
		return mat4Header{}, fmt.Errorf("not a MAT level 4 file")
	}

	m := mopt / 1000
	o := (mopt / 100) % 10
	p := (mopt / 10) % 10
	t := mopt % 10
	if m > 1 || o != 0 || p > 5 {
		return mat4Header{}, fmt.Errorf("unsupported MAT type %04d", mopt)
	}
	if t != 0 {
		return mat4Header{}, fmt.Errorf("only full numeric matrices are supported (type %04d)", mopt)
	}

	rows := int(int32(order.Uint32(raw[4:8])))
	cols := int(int32(order.Uint32(raw[8:12])))
	imagf := int32(order.Uint32(raw[12:16]))
	namlen := int(int32(order.Uint32(raw[16:20])))

	if rows < 0 || cols < 0 || namlen <= 0 || namlen > 1024 {
		return mat4Header{}, fmt.Errorf("invalid MAT header")
	}
	if cols > 0 && rows > maxMatElements/cols {
		return mat4Header{}, fmt.Errorf("MAT matrix %dx%d too large", rows, cols)
	}

	nameBuf := make([]byte, namlen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return mat4Header{}, fmt.Errorf("truncated MAT variable name: %w", err)
	}

	return mat4Header{
		order:     order,
		precision: int(p),
		rows:      rows,
		cols:      cols,
		imaginary: imagf != 0,
		name:      strings.TrimRight(string(nameBuf), "\x00"),
	}, nil
}

func skipMat4Data(r io.Reader, h mat4Header) error {
	n := int64(h.rows) * int64(h.cols) * int64(h.elementSize())
	if h.imaginary {
		n *= 2
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("truncated MAT variable %q: %w", h.name, err)
	}
	return nil
}

// readMat4Data reads column-major samples into a rows x cols matrix
func readMat4Data(r io.Reader, h mat4Header) (*mat.Dense, error) {
	if h.rows == 0 || h.cols == 0 {
		return nil, fmt.Errorf("MAT variable %q is empty", h.name)
	}

	size := h.elementSize()
	buf := make([]byte, h.rows*h.cols*size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("truncated MAT variable %q: %w", h.name, err)
	}

	data := make([]float64, h.rows*h.cols)
	for k := 0; k < h.rows*h.cols; k++ {
		b := buf[k*size : (k+1)*size]
		var v float64
		switch h.precision {
		case 0:
			v = math.Float64frombits(h.order.Uint64(b))
		case 1:
			v = float64(math.Float32frombits(h.order.Uint32(b)))
		case 2:
			v = float64(int32(h.order.Uint32(b)))
		case 3:
			v = float64(int16(h.order.Uint16(b)))
		case 4:
			v = float64(h.order.Uint16(b))
		default:
			v = float64(b[0])
		}
		// column-major on disk, row-major in gonum
		col := k / h.rows
		row := k % h.rows
		data[row*h.cols+col] = v
	}

	return mat.NewDense(h.rows, h.cols, data), nil
}
