package handlers

import (
	"io"
	"net/http"
)

// tarPitSize is the advertised size of the dummy payload served to
// abusive orgs instead of a normal error.
const tarPitSize int64 = 1 << 30

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// TarPit streams an oversized dummy payload. Deny-listed orgs get an
// error; orgs flagged as DDoS sources get this instead, so their
// clients choke on the response rather than retry.
func TarPit(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	io.CopyN(w, zeroReader{}, tarPitSize)
}
