// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

package crypto

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/ed25519"
)

type ed25519Signature [64]byte
type ed25519PublicKey [32]byte
type ed25519PrivateKey [64]byte
type ed25519Seed [32]byte

// A Seed holds the entropy needed to generate cryptographic keys.
type Seed ed25519Seed

// A Signature is a cryptographic signature. It proves that a message was
// produced by a holder of a cryptographic secret.
type Signature ed25519Signature

// BlankSignature is an empty signature structure, containing nothing but zeroes
var BlankSignature = Signature{}

// Blank tests to see if the given signature contains only zeros
func (s *Signature) Blank() bool {
	return (*s) == BlankSignature
}

// A PublicKey is an ed25519 public key. It identifies the holder of the
// matching SignatureSecrets.
type PublicKey ed25519PublicKey

// String returns the public key in base64, the form recorded in the transparency log.
func (pk PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(pk[:])
}

// PublicKeyFromString parses a base64 public key.
func PublicKeyFromString(s string) (pk PublicKey, err error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pk, err
	}
	if len(decoded) != len(pk) {
		return pk, fmt.Errorf("public key has %d bytes, expected %d", len(decoded), len(pk))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// SignatureVerifier is used to identify the holder of SignatureSecrets
// and verify the authenticity of Signatures.
type SignatureVerifier = PublicKey

// SignatureSecrets are used by an entity to produce unforgeable signatures over
// a message.
type SignatureSecrets struct {
	_struct struct{} `codec:""`

	SignatureVerifier
	SK ed25519PrivateKey
}

// GenerateSignatureSecrets creates SignatureSecrets from a source of entropy.
func GenerateSignatureSecrets(seed Seed) *SignatureSecrets {
	sk := ed25519.NewKeyFromSeed(seed[:])
	s := new(SignatureSecrets)
	copy(s.SK[:], sk)
	copy(s.SignatureVerifier[:], sk.Public().(ed25519.PublicKey))
	return s
}

// RandomSeed returns a seed drawn from the system entropy source.
func RandomSeed() (seed Seed) {
	RandBytes(seed[:])
	return
}

// Seed returns the entropy the secrets were derived from.
func (s *SignatureSecrets) Seed() (seed Seed) {
	copy(seed[:], ed25519.PrivateKey(s.SK[:]).Seed())
	return
}

// Sign produces a cryptographic Signature of a Hashable message, given
// cryptographic secrets.
func (s *SignatureSecrets) Sign(message Hashable) Signature {
	return s.SignBytes(HashRep(message))
}

// SignBytes signs a message directly, without first hashing.
// Caller is responsible for domain separation.
func (s *SignatureSecrets) SignBytes(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(s.SK[:]), message))
	return sig
}

// Verify verifies that some holder of a cryptographic secret authentically
// signed a Hashable message.
func (v SignatureVerifier) Verify(message Hashable, sig Signature) bool {
	return ed25519ConsensusVerifySingle(v, HashRep(message), sig)
}

// VerifyBytes verifies a signature, where the message is not hashed first.
// Caller is responsible for domain separation.
func (v SignatureVerifier) VerifyBytes(message []byte, sig Signature) bool {
	return ed25519ConsensusVerifySingle(v, message, sig)
}
