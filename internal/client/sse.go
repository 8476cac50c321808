package client

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const maxEventSize = 1 << 20

var errStreamEnded = errors.New("event stream ended")

type sseEvent struct {
	name string
	data []byte
}

// readEvents parses a text/event-stream body and calls fn per dispatched
// event. Comment lines (keepalives) are skipped. It returns fn's first error,
// the read error, or errStreamEnded when the server closes the stream.
func readEvents(r io.Reader, fn func(sseEvent) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var (
		name string
		data bytes.Buffer
		has  bool
	)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			if has {
				ev := sseEvent{name: name, data: append([]byte(nil), data.Bytes()...)}
				if ev.name == "" {
					ev.name = "message"
				}
				if err := fn(ev); err != nil {
					return err
				}
			}
			name, has = "", false
			data.Reset()
			continue
		}
		if line[0] == ':' {
			continue
		}
		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))
		switch string(field) {
		case "event":
			name = string(value)
		case "data":
			if has {
				data.WriteByte('\n')
			}
			data.Write(value)
			has = true
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errStreamEnded
}
