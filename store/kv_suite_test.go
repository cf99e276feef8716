package store_test

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/LovationAdmin/gastos-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// KVSuite exercises the KV contract. Each backend embeds it and sets newStore.
type KVSuite struct {
	suite.Suite
	newStore func() store.KV
	kv       store.KV
	ctx      context.Context
}

func (s *KVSuite) SetupTest() {
	s.ctx = context.Background()
	s.kv = s.newStore()
}

func keys(entries []store.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key)
	}
	sort.Strings(out)
	return out
}

func (s *KVSuite) TestGetMissingKey() {
	_, err := s.kv.Get(s.ctx, "missing")
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *KVSuite) TestSetThenGet() {
	require.NoError(s.T(), s.kv.Set(s.ctx, "expense:u1:e1", json.RawMessage(`{"amount":10}`)))

	value, err := s.kv.Get(s.ctx, "expense:u1:e1")
	require.NoError(s.T(), err)
	assert.JSONEq(s.T(), `{"amount":10}`, string(value))
}

func (s *KVSuite) TestSetOverwrites() {
	require.NoError(s.T(), s.kv.Set(s.ctx, "k", json.RawMessage(`{"v":1}`)))
	require.NoError(s.T(), s.kv.Set(s.ctx, "k", json.RawMessage(`{"v":2}`)))

	value, err := s.kv.Get(s.ctx, "k")
	require.NoError(s.T(), err)
	assert.JSONEq(s.T(), `{"v":2}`, string(value))
}

func (s *KVSuite) TestDelete() {
	require.NoError(s.T(), s.kv.Set(s.ctx, "k", json.RawMessage(`{}`)))

	require.NoError(s.T(), s.kv.Delete(s.ctx, "k"))
	assert.ErrorIs(s.T(), s.kv.Delete(s.ctx, "k"), store.ErrNotFound)

	_, err := s.kv.Get(s.ctx, "k")
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *KVSuite) TestGetByPrefix() {
	for _, key := range []string{"expense:u1:a", "expense:u1:b", "expense:u10:c", "expense:u2:d", "user:u1"} {
		require.NoError(s.T(), s.kv.Set(s.ctx, key, json.RawMessage(`{"ok":true}`)))
	}

	entries, err := s.kv.GetByPrefix(s.ctx, "expense:u1:")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"expense:u1:a", "expense:u1:b"}, keys(entries))

	for _, e := range entries {
		assert.JSONEq(s.T(), `{"ok":true}`, string(e.Value))
	}
}

func (s *KVSuite) TestGetByPrefixEmpty() {
	entries, err := s.kv.GetByPrefix(s.ctx, "expense:nobody:")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), entries)
}

func (s *KVSuite) TestGetByPrefixTreatsWildcardsLiterally() {
	require.NoError(s.T(), s.kv.Set(s.ctx, "a%b:1", json.RawMessage(`{}`)))
	require.NoError(s.T(), s.kv.Set(s.ctx, "axb:1", json.RawMessage(`{}`)))
	require.NoError(s.T(), s.kv.Set(s.ctx, "a_b:1", json.RawMessage(`{}`)))

	entries, err := s.kv.GetByPrefix(s.ctx, "a%b:")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"a%b:1"}, keys(entries))

	entries, err = s.kv.GetByPrefix(s.ctx, "a_b:")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"a_b:1"}, keys(entries))
}
