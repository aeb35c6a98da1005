package frame

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
)

// Framer serializes and deserializes frames against an underlying
// transport stream.
type Framer interface {
	WriteFrame(*Frame) error
	ReadFrame() (*Frame, error)
}

type framer struct {
	r   io.Reader
	w   io.Writer
	dec Decoder
	buf [4096]byte
	out []*Frame
}

// NewFramer returns a Framer that reads from r and writes to w.
func NewFramer(r io.Reader, w io.Writer) Framer {
	return &framer{r: r, w: w}
}

func (fr *framer) WriteFrame(f *Frame) error {
	return Encode(fr.w, f)
}

func (fr *framer) ReadFrame() (*Frame, error) {
	for len(fr.out) == 0 {
		n, err := fr.r.Read(fr.buf[:])
		if n > 0 {
			if ferr := fr.dec.Feed(fr.buf[:n], func(f *Frame) error {
				fr.out = append(fr.out, f)
				return nil
			}); ferr != nil {
				return nil, ferr
			}
		}
		if err != nil {
			if len(fr.out) > 0 {
				break
			}
			return nil, err
		}
	}
	f := fr.out[0]
	fr.out = fr.out[1:]
	return f, nil
}

// debugFramer wraps a Framer and logs every frame read or written to wr,
// useful while diagnosing a misbehaving peer.
type debugFramer struct {
	Framer
	mu   sync.Mutex
	wr   *tabwriter.Writer
	once sync.Once
	name string
}

// NewDebugFramer wraps fr, tee-ing a human readable trace of every frame to
// wr.
func NewDebugFramer(name string, wr io.Writer, fr Framer) Framer {
	return &debugFramer{
		Framer: fr,
		wr:     tabwriter.NewWriter(wr, 12, 2, 2, ' ', 0),
		name:   name,
	}
}

func (d *debugFramer) header() {
	d.once.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		fmt.Fprintf(d.wr, "%s\t%s\t%s\t%s\t%s\t%s\n", "NAME", "OP", "TYPE", "STREAM", "LEN", "FLAGS")
	})
}

func (d *debugFramer) WriteFrame(f *Frame) error {
	d.header()
	err := d.Framer.WriteFrame(f)
	d.mu.Lock()
	fmt.Fprintf(d.wr, "%s\tWRITE\t%s\t%d\t%d\t%s\n", d.name, f.Type, f.StreamID, f.Length, f.Flags)
	d.wr.Flush()
	d.mu.Unlock()
	return err
}

func (d *debugFramer) ReadFrame() (*Frame, error) {
	d.header()
	f, err := d.Framer.ReadFrame()
	d.mu.Lock()
	if err == nil {
		fmt.Fprintf(d.wr, "%s\tREAD\t%s\t%d\t%d\t%s\n", d.name, f.Type, f.StreamID, f.Length, f.Flags)
	} else {
		fmt.Fprintf(d.wr, "%s\tREAD\t\t\t\terror: %v\n", d.name, err)
	}
	d.wr.Flush()
	d.mu.Unlock()
	return f, err
}
