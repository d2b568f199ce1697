// Package encryption шифрует секретные атрибуты saved objects.
//
// Используется NaCl secretbox (XSalsa20-Poly1305) с 32-байтовым ключом.
// Формат блоба: nonce (24 байта) || sealed box. Внутри — JSON секретных атрибутов.
package encryption

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// Ошибки шифрования.
var (
	// ErrInvalidKey — ключ имеет неверную длину или формат.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrDecrypt — блоб повреждён или зашифрован другим ключом.
	ErrDecrypt = errors.New("failed to decrypt attributes")
)

// Service шифрует и расшифровывает атрибуты.
type Service struct {
	key    [keySize]byte
	random io.Reader
}

// NewService создаёт Service с ключом из 32 байт.
func NewService(key []byte) (*Service, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, keySize, len(key))
	}
	s := &Service{random: rand.Reader}
	copy(s.key[:], key)
	return s, nil
}

// NewServiceFromBase64 создаёт Service из ключа в base64 (формат ENCRYPTION_KEY).
func NewServiceFromBase64(encoded string) (*Service, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return NewService(key)
}

// Seal шифрует атрибуты.
func (s *Service) Seal(attrs map[string]any) ([]byte, error) {
	plain, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal secret attributes: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.random, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

// Open расшифровывает блоб, созданный Seal.
func (s *Service) Open(blob []byte) (map[string]any, error) {
	if len(blob) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: blob too short", ErrDecrypt)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])

	plain, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrDecrypt
	}

	var attrs map[string]any
	if err := json.Unmarshal(plain, &attrs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return attrs, nil
}
