package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrNoToken is returned by a Store holding nothing.
var ErrNoToken = errors.New("no stored token")

// Store persists the auth token between restarts
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileStore keeps the token sealed with ChaCha20-Poly1305 in a single file.
// The file holds hex(nonce || ciphertext).
type FileStore struct {
	path string
	aead interface {
		NonceSize() int
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewFileStore derives the sealing key from secret with HKDF-SHA256
func NewFileStore(path, secret string) (*FileStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption key is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("field-ledger token")), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &FileStore{path: path, aead: aead}, nil
}

// Save seals and writes the token
func (s *FileStore) Save(token string) error {
	if token == "" {
		return fmt.Errorf("token is empty")
	}
	sealed, err := s.seal([]byte(token))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(sealed), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Load reads and opens the token
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	plain, err := s.open(strings.TrimSpace(string(data)))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Clear removes the token file. A missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

func (s *FileStore) seal(plain []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plain, nil)
	return hex.EncodeToString(out), nil
}

func (s *FileStore) open(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrNoToken
	}
	data, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex: %w", err)
	}
	n := s.aead.NonceSize()
	if len(data) <= n {
		return nil, fmt.Errorf("sealed token too short: %d bytes", len(data))
	}
	plain, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed token: %w", err)
	}
	return plain, nil
}

// MemoryStore keeps the token in memory only
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save("")
}
