package runner

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// tailer follows a log file that the game appends to and occasionally
// truncates on restart.
type tailer struct {
	path    string
	offset  int64
	partial []byte
}

func newTailer(path string) (*tailer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &tailer{path: path, offset: info.Size()}, nil
}

// poll returns the complete lines appended since the previous call.
func (t *tailer) poll() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size < t.offset {
		t.offset = 0
		t.partial = nil
	}
	if size == t.offset {
		return nil, nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(f, size-t.offset))
	if err != nil {
		return nil, err
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		t.partial = buf
		return nil, nil
	}
	t.partial = append([]byte(nil), buf[end+1:]...)

	var lines []string
	for _, line := range strings.Split(string(buf[:end]), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
