package driftbox

import "gitlab.com/paddycarver/magic-number-checker/checker"

// sniffWindow bounds how many bytes of an upload get fed to the magic
// number checker; detection only ever needs the first few bytes of a
// stream, and Slab.Append may run over an upload far larger than that.
const sniffWindow = 512

// typeSniffer watches the first bytes of an append and reports the MIME
// type implied by their magic number, purely as a diagnostic signal
// alongside the caller-declared content type. It never influences what
// gets stored.
type typeSniffer struct {
	checker *checker.MagicNumberChecker
	written int
	closed  bool
}

func newTypeSniffer() *typeSniffer {
	return &typeSniffer{
		checker: &checker.MagicNumberChecker{
			SupportedMIMEs: []string{
				"image/gif",
				"image/jpeg",
				"image/jpg",
				"image/png",
				"image/webp",
				"application/pdf",
				"video/mp4",
			},
		},
	}
}

func (t *typeSniffer) observe(p []byte) {
	if t.closed || t.written >= sniffWindow {
		return
	}
	if remaining := sniffWindow - t.written; len(p) > remaining {
		p = p[:remaining]
	}
	n, _ := t.checker.Write(p)
	t.written += n
}

// matchedMIME closes the underlying checker and returns its verdict, or
// "" if nothing matched. Safe to call multiple times.
func (t *typeSniffer) matchedMIME() string {
	if !t.closed {
		_ = t.checker.Close()
		t.closed = true
	}
	return t.checker.MatchedMIME
}
