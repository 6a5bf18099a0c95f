package util

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0777); err != nil {
		return errors.Wrapf(err, "could not create dir %v", path)
	}
	return nil
}

func WriteBinary(filename string, data any) error {
	buf := new(bytes.Buffer)
	encoder := gob.NewEncoder(buf)
	if err := encoder.Encode(data); err != nil {
		return errors.Wrapf(err, "could not encode %v", filename)
	}

	if err := EnsureDir(filepath.Dir(filename)); err != nil {
		return err
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0666); err != nil {
		return errors.Wrapf(err, "write failed for file %v", filename)
	}
	return nil
}

func ReadBinary[A any](path string) (A, error) {
	var data A
	f, err := os.Open(path)
	if err != nil {
		return data, errors.Wrap(err, "could not load binary file")
	}
	defer f.Close()

	decoder := gob.NewDecoder(f)
	if err = decoder.Decode(&data); err != nil {
		return data, errors.Wrapf(err, "could not decode binary file %v", path)
	}
	return data, nil
}

func GetKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := make([]A, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func SortedKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := GetKeys(m)
	slices.Sort(keys)
	return keys
}

func Min[A constraints.Ordered](num1 A, num2 A) A {
	if num1 > num2 {
		return num2
	}
	return num1
}

func Clamp[A constraints.Ordered](v, lo, hi A) A {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Sum[A constraints.Integer | constraints.Float](nums []A) float64 {
	var total float64
	for _, v := range nums {
		total += float64(v)
	}
	return total
}
