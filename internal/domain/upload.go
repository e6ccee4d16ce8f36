package domain

import "io"

// Upload is a file received from a client, ready to hand to an object store.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
