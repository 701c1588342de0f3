package utils

import (
	"io"

	"github.com/golang/snappy"
)

// CompressedExt - расширение файлов в формате snappy framing
const CompressedExt = ".sz"

// NewCompressWriter оборачивает w потоковым сжатием snappy. Close дописывает буфер, но не закрывает w.
func NewCompressWriter(w io.Writer) io.WriteCloser {
	return snappy.NewBufferedWriter(w)
}

// NewDecompressReader читает поток, сжатый NewCompressWriter
func NewDecompressReader(r io.Reader) io.Reader {
	return snappy.NewReader(r)
}
