package model

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/xxh3"
)

var hashEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("model: failed to create CBOR enc mode: %v", err))
	}
	hashEncMode = em
}

// Serialize returns the canonical encoding of a schema list. Equal schema
// lists always serialize to equal bytes.
func Serialize(schemas []*Schema) ([]byte, error) {
	docs := make([]any, len(schemas))
	for i, s := range schemas {
		docs[i] = s.Canonical()
	}
	data, err := hashEncMode.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("serializing schemas: %w", err)
	}
	return data, nil
}

// Hash returns the xxh3 content hash of a schema list as 16 hex digits.
func Hash(schemas []*Schema) (string, error) {
	data, err := Serialize(schemas)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxh3.Hash(data)), nil
}
