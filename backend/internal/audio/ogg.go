package audio

import (
	"bytes"
	"fmt"
	"io"
)

// OggOpusReader extracts raw Opus packets from an Ogg Opus byte stream,
// one page at a time. The OpusHead and OpusTags header packets are
// skipped; every other packet is returned ready for the voice transport.
type OggOpusReader struct {
	r        io.Reader
	segTable []byte
	segIndex int
	pending  []byte
}

// NewOggOpusReader wraps an Ogg Opus stream
func NewOggOpusReader(r io.Reader) *OggOpusReader {
	return &OggOpusReader{r: r}
}

// ReadPacket returns the next Opus packet, or io.EOF when the stream is
// exhausted. Packets split across 255-byte lacing segments or page
// boundaries are reassembled.
func (o *OggOpusReader) ReadPacket() ([]byte, error) {
	for {
		if o.segIndex >= len(o.segTable) {
			if err := o.readPageHeader(); err != nil {
				return nil, err
			}
			continue
		}

		segLen := int(o.segTable[o.segIndex])
		o.segIndex++

		if segLen > 0 {
			seg := make([]byte, segLen)
			if _, err := io.ReadFull(o.r, seg); err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return nil, err
			}
			o.pending = append(o.pending, seg...)
		}

		// A lacing value below 255 terminates the packet
		if segLen < 255 {
			packet := o.pending
			o.pending = nil
			if len(packet) == 0 || isHeaderPacket(packet) {
				continue
			}
			return packet, nil
		}
	}
}

// readPageHeader consumes the next 27-byte page header plus segment table
func (o *OggOpusReader) readPageHeader() error {
	header := make([]byte, 27)
	if _, err := io.ReadFull(o.r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}

	if string(header[0:4]) != "OggS" {
		return fmt.Errorf("invalid OGG page header")
	}

	segCount := int(header[26])
	o.segTable = make([]byte, segCount)
	o.segIndex = 0
	if segCount == 0 {
		return nil
	}
	if _, err := io.ReadFull(o.r, o.segTable); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

func isHeaderPacket(packet []byte) bool {
	return bytes.HasPrefix(packet, []byte("OpusHead")) || bytes.HasPrefix(packet, []byte("OpusTags"))
}
