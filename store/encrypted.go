package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LovationAdmin/gastos-api/utils"
)

// EncryptedData wraps an AES-GCM encrypted value at rest.
type EncryptedData struct {
	Encrypted string `json:"encrypted"`
}

// EncryptedStore encrypts values before handing them to the wrapped store.
// Plaintext values written before encryption was enabled stay readable.
type EncryptedStore struct {
	next KV
	key  string
}

func NewEncryptedStore(next KV, key string) (*EncryptedStore, error) {
	if len(key) != 32 {
		return nil, utils.ErrInvalidEncryptionKey
	}
	return &EncryptedStore{next: next, key: key}, nil
}

func (s *EncryptedStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	value, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.open(value)
}

func (s *EncryptedStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	sealed, err := utils.Encrypt(s.key, value)
	if err != nil {
		return fmt.Errorf("encrypt %q: %w", key, err)
	}

	wrapped, err := json.Marshal(EncryptedData{Encrypted: sealed})
	if err != nil {
		return err
	}
	return s.next.Set(ctx, key, wrapped)
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}

// GetByPrefix drops entries that fail to decrypt so one damaged record does
// not hide the rest.
func (s *EncryptedStore) GetByPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	entries, err := s.next.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	opened := entries[:0]
	for _, entry := range entries {
		value, err := s.open(entry.Value)
		if err != nil {
			utils.SafeWarn("[Store] skipping undecryptable record %s: %v", entry.Key, err)
			continue
		}
		entry.Value = value
		opened = append(opened, entry)
	}
	return opened, nil
}

func (s *EncryptedStore) open(value json.RawMessage) (json.RawMessage, error) {
	var wrapper EncryptedData
	if err := json.Unmarshal(value, &wrapper); err != nil || wrapper.Encrypted == "" {
		return value, nil
	}

	plaintext, err := utils.Decrypt(s.key, wrapper.Encrypted)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(plaintext), nil
}
