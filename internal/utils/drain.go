package utils

import "io"

const maxDrainBytes = 64 << 10

// DrainAndClose reads what is left of a response body (up to 64 KiB) before
// closing it so the transport can reuse the connection. Errors are ignored.
func DrainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, maxDrainBytes))
	_ = rc.Close()
}
