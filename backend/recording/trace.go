package recording

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Call is one recorded device call.
type Call struct {
	Seq  int    `msgpack:"seq"`
	Op   string `msgpack:"op"`
	Args []any  `msgpack:"args,omitempty"`
}

// Trace is the serialized form of a recorded session.
type Trace struct {
	Device string `msgpack:"device"`
	Calls  []Call `msgpack:"calls"`
	Stats  Stats  `msgpack:"stats"`
}

func (d *Device) record(op string, args ...any) {
	if !d.traceOn {
		return
	}
	d.trace = append(d.trace, Call{Seq: len(d.trace), Op: op, Args: args})
}

// Calls returns the recorded calls. Empty unless WithTrace was given.
func (d *Device) Calls() []Call {
	return d.trace
}

// ResetTrace drops recorded calls.
func (d *Device) ResetTrace() {
	d.trace = d.trace[:0]
}

// WriteTrace encodes the recorded calls and counters as msgpack.
func (d *Device) WriteTrace(w io.Writer) error {
	t := Trace{Device: d.Name(), Calls: d.trace, Stats: d.stats}
	if err := msgpack.NewEncoder(w).Encode(&t); err != nil {
		return fmt.Errorf("recording: encode trace: %w", err)
	}
	return nil
}

// ReadTrace decodes a trace written by WriteTrace.
func ReadTrace(r io.Reader) (*Trace, error) {
	var t Trace
	if err := msgpack.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("recording: decode trace: %w", err)
	}
	return &t, nil
}
