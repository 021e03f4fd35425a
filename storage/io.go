package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Write writes m to w in binary format: the number of rows and the
// number of columns as 4-byte little-endian integers, followed by the
// stored buffer in storage order.
func Write(m Layout, w io.Writer) error {
	op := opName(m, "Write")
	r, c := m.Dims()
	if err := binary.Write(w, binary.LittleEndian, int32(r)); err != nil {
		return ioErr(op, "", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(c)); err != nil {
		return ioErr(op, "", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.RawData()); err != nil {
		return ioErr(op, "", err)
	}
	return nil
}

// Read reads m from r in binary format. The matrix is reallocated to
// the persisted dimensions before the payload is read.
func Read(m Layout, r io.Reader) error {
	op := opName(m, "Read")
	var rows, cols int32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return ioErr(op, "", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return ioErr(op, "", err)
	}
	if err := m.Reallocate(int(rows), int(cols)); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, m.RawData()); err != nil {
		return ioErr(op, "", err)
	}
	return nil
}

// WriteFile writes m to the named file in binary format.
func WriteFile(m Layout, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return ioErr(opName(m, "WriteFile"), path, err)
	}
	defer f.Close()

	if err := Write(m, f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return ioErr(opName(m, "WriteFile"), path, err)
	}
	return nil
}

// ReadFile reads m from the named file in binary format.
func ReadFile(m Layout, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return ioErr(opName(m, "ReadFile"), path, err)
	}
	defer f.Close()

	return Read(m, f)
}

// WriteText writes m to w in text format: one row per line, entries
// separated by tabulations. The full square grid is printed, mirrored
// and zero entries included.
func WriteText(m Layout, w io.Writer) error {
	op := opName(m, "WriteText")
	bw := bufio.NewWriter(w)
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if _, err := bw.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64)); err != nil {
				return ioErr(op, "", err)
			}
			if err := bw.WriteByte('\t'); err != nil {
				return ioErr(op, "", err)
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return ioErr(op, "", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return ioErr(op, "", err)
	}
	return nil
}

// ReadText reads m from r in text format. The column count is inferred
// from the first line and all subsequent lines must match it; only the
// mathematically present entries of the layout are populated.
func ReadText(m Layout, r io.Reader) error {
	op := opName(m, "ReadText")

	var grid [][]float64
	cols := -1
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if cols < 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return ioErr(op, "", fmt.Errorf("row %d has %d columns, want %d", len(grid), len(fields), cols))
		}
		row := make([]float64, cols)
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return ioErr(op, "", fmt.Errorf("row %d: %v", len(grid), err))
			}
			row[j] = v
		}
		grid = append(grid, row)
	}
	if err := sc.Err(); err != nil {
		return ioErr(op, "", err)
	}
	if cols < 0 {
		return ioErr(op, "", fmt.Errorf("empty input"))
	}

	if _, general := m.(*Dense); !general && len(grid) != cols {
		return ioErr(op, "", fmt.Errorf("matrix is not square: [%d x %d]", len(grid), cols))
	}
	if err := m.Reallocate(len(grid), cols); err != nil {
		return err
	}
	for i, row := range grid {
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return nil
}

// WriteTextFile writes m to the named file in text format.
func WriteTextFile(m Layout, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return ioErr(opName(m, "WriteTextFile"), path, err)
	}
	defer f.Close()

	if err := WriteText(m, f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return ioErr(opName(m, "WriteTextFile"), path, err)
	}
	return nil
}

// ReadTextFile reads m from the named file in text format.
func ReadTextFile(m Layout, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return ioErr(opName(m, "ReadTextFile"), path, err)
	}
	defer f.Close()

	return ReadText(m, f)
}

func opName(m Layout, name string) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", m), "*storage.") + "." + name
}
