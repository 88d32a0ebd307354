package dvsa

import (
	"errors"
	"unicode/utf8"
)

// Lookup and token errors are wrapped around one of these sentinels.
// Classify with errors.Is.
var (
	// ErrAuth means the credentials or the bearer token were rejected.
	ErrAuth = errors.New("authentication failed")

	// ErrNotFound means the API holds no record for the vehicle.
	ErrNotFound = errors.New("vehicle not found")

	// ErrAPI covers every other remote, transport or decoding failure.
	ErrAPI = errors.New("api request failed")
)

// maxBodyInError bounds how much of a response body ends up in an error message.
const maxBodyInError = 200

func truncateBody(body []byte) string {
	if len(body) <= maxBodyInError {
		return string(body)
	}
	b := body[:maxBodyInError]
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}
