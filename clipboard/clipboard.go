// Package clipboard puts transcripts on the system clipboard. On
// Linux it needs xclip, xsel or wl-clipboard; a missing tool surfaces
// as an error from Copy, which the UI reports without failing the
// session.
package clipboard

import cb "github.com/atotto/clipboard"

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// Available reports whether a clipboard tool is usable on this system.
func Available() bool {
	return !cb.Unsupported
}
