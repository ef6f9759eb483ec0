package canonical

import (
	"crypto/sha256"
	"encoding/hex"

	jsoniter "github.com/json-iterator/go"
)

// json sorts map keys on output, so identical content always serializes to
// identical bytes regardless of insertion order. Every hash in the system
// (leaf, block, token) is computed over this encoding.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes v with sorted map keys.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalString is Marshal returning a string.
func MarshalString(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// HashHex returns the hex-encoded SHA-256 digest of s.
func HashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashValue canonically serializes v and returns its hex digest.
func HashValue(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
