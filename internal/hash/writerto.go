package hash

import (
	"encoding/binary"
	"io"
)

// WriterToWithDomain is a value that can write itself to the transcript, tagged with a domain.
type WriterToWithDomain interface {
	io.WriterTo

	// Domain returns a context string, unique for each implementor.
	Domain() string
}

// writeWithDomain writes `(<len(domain)><domain><data>)`.
//
// The length prefix keeps domains that are prefixes of each other apart.
func writeWithDomain(w io.Writer, object WriterToWithDomain) error {
	domain := object.Domain()
	var prefix [1 + 2]byte
	prefix[0] = '('
	binary.BigEndian.PutUint16(prefix[1:], uint16(len(domain)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, domain); err != nil {
		return err
	}
	if _, err := object.WriteTo(w); err != nil {
		return err
	}
	_, err := w.Write([]byte(")"))
	return err
}

// BytesWithDomain annotates a chunk of data with a domain.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteTo implements io.WriterTo.
func (b BytesWithDomain) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (b BytesWithDomain) Domain() string {
	return b.TheDomain
}
