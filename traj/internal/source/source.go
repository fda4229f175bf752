/*
 * source.go, part of mdbench.
 *
 * Copyright 2024 The mdbench authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package source opens trajectory files for sequential reading. Plain files are
// memory-mapped. Files compressed with zstd (.zst), gzip (.gz) or lzw (.lzw) are
// decompressed on the fly.
package source

import (
	"bufio"
	"compress/gzip"
	"compress/lzw"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/exp/mmap"
)

const (
	lzwOrder        = lzw.MSB
	lzwLitwidth int = 8
)

// Source is where the bytes of a trajectory come from.
type Source interface {
	io.Reader
	//Skip discards the next n bytes. It returns io.ErrUnexpectedEOF if there are
	//less than n bytes left.
	Skip(n int64) error
	//Rewind goes back to the beginning of the file.
	Rewind() error
	Close() error
}

// Compression returns the compression format of a trajectory, from the
// extension of its file name: "zst", "gz", "lzw" or "" for a plain file.
func Compression(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, ".zst"), strings.HasSuffix(n, ".zstd"):
		return "zst"
	case strings.HasSuffix(n, ".gz"):
		return "gz"
	case strings.HasSuffix(n, ".lzw"):
		return "lzw"
	}
	return ""
}

// Trim returns name without its compression extension, if any.
func Trim(name string) string {
	if Compression(name) == "" {
		return name
	}
	return name[:strings.LastIndex(name, ".")]
}

// Open opens the file name. Errors from the OS are returned unwrapped.
func Open(name string) (Source, error) {
	if c := Compression(name); c != "" {
		s := &stream{name: name, kind: c}
		if err := s.open(); err != nil {
			return nil, err
		}
		return s, nil
	}
	m, err := mmap.Open(name)
	if err != nil {
		return nil, err
	}
	return &mapped{m: m, SectionReader: io.NewSectionReader(m, 0, int64(m.Len()))}, nil
}

type mapped struct {
	m *mmap.ReaderAt
	*io.SectionReader
}

func (s *mapped) Skip(n int64) error {
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if cur+n > s.Size() {
		s.Seek(0, io.SeekEnd)
		return io.ErrUnexpectedEOF
	}
	_, err = s.Seek(n, io.SeekCurrent)
	return err
}

func (s *mapped) Rewind() error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}

func (s *mapped) Close() error {
	return s.m.Close()
}

// zstdCloser gives the zstd decoder a Close method with an error, so it can be an io.ReadCloser.
type zstdCloser struct {
	*zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// stream is a compressed file. Rewinding means opening it again.
type stream struct {
	name string
	kind string
	f    *os.File
	dec  io.ReadCloser
	r    *bufio.Reader
}

func (s *stream) open() error {
	var err error
	s.f, err = os.Open(s.name)
	if err != nil {
		return err
	}
	br := bufio.NewReader(s.f)
	switch s.kind {
	case "zst":
		var d *zstd.Decoder
		d, err = zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err == nil {
			s.dec = zstdCloser{d}
		}
	case "gz":
		var g *gzip.Reader
		g, err = gzip.NewReader(br)
		if err == nil {
			s.dec = g
		}
	case "lzw":
		s.dec = lzw.NewReader(br, lzwOrder, lzwLitwidth)
	default:
		err = fmt.Errorf("compression %q not supported", s.kind)
	}
	if err != nil {
		s.f.Close()
		s.f, s.dec = nil, nil
		return err
	}
	s.r = bufio.NewReaderSize(s.dec, 1<<16)
	return nil
}

func (s *stream) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, os.ErrClosed
	}
	return s.r.Read(p)
}

func (s *stream) Skip(n int64) error {
	if s.r == nil {
		return os.ErrClosed
	}
	d, err := s.r.Discard(int(n))
	if err == io.EOF || (err == nil && int64(d) < n) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (s *stream) Rewind() error {
	s.Close()
	return s.open()
}

func (s *stream) Close() error {
	s.r = nil
	if s.dec != nil {
		s.dec.Close()
		s.dec = nil
	}
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}
