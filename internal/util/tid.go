package util

import "crypto/rand"

const tidAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

// NewTrackingID returns a short random identifier customers use to look up
// an order without authentication.
func NewTrackingID(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = tidAlphabet[int(b)%len(tidAlphabet)]
	}
	return string(buf)
}
