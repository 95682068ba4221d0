package parser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single log line. Broker JSON dumps can be long;
// anything beyond this is cut and the line is flagged Truncated.
const maxLineSize = 4 * 1024 * 1024

// FileSource implements LineSource for reading one log file.
type FileSource struct {
	path string

	file   *os.File
	reader *bufio.Reader
	index  int
	done   bool
}

// NewFileSource creates a LineSource that reads from the given file.
// The file is opened lazily on the first call to Next.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Next returns the next line of the file.
// Returns io.EOF once the file is exhausted; the file is closed at that point.
func (s *FileSource) Next(ctx context.Context) (*LogLine, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if s.done {
		return nil, io.EOF
	}

	if s.reader == nil {
		if err := s.open(); err != nil {
			return nil, err
		}
	}

	content, truncated, err := s.readLine()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if err == io.EOF && content == "" && !truncated {
		s.done = true
		if err := s.Close(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	line := &LogLine{
		Content:   content,
		Source:    s.path,
		Index:     s.index,
		Truncated: truncated,
	}
	s.index++
	return line, nil
}

// readLine returns one line without its "\n" or "\r\n" ending. At most
// maxLineSize bytes are kept; the rest of an oversized line is discarded.
// io.EOF is returned together with a final unterminated line.
func (s *FileSource) readLine() (string, bool, error) {
	var buf []byte
	truncated := false
	for {
		frag, err := s.reader.ReadSlice('\n')
		if room := maxLineSize - len(buf); len(frag) > room {
			buf = append(buf, frag[:room]...)
			truncated = true
		} else {
			buf = append(buf, frag...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if !truncated {
			buf = bytes.TrimSuffix(buf, []byte("\n"))
			buf = bytes.TrimSuffix(buf, []byte("\r"))
		}
		return string(buf), truncated, err
	}
}

// Close releases the underlying file. It is safe to call more than once.
func (s *FileSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	return err
}

func (s *FileSource) open() error {
	f, err := os.Open(s.path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", s.path, err)
	}

	s.file = f
	s.reader = bufio.NewReaderSize(f, 64*1024)
	return nil
}

// ReadLines reads a whole file into memory. The file is closed on every
// return path.
func ReadLines(ctx context.Context, path string) ([]LogLine, error) {
	src := NewFileSource(path)
	defer src.Close()

	var lines []LogLine
	for {
		line, err := src.Next(ctx)
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
}
