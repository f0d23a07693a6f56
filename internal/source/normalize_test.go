package source

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawEntry(t *testing.T, body string) rawMultisigTxEntry {
	t.Helper()
	var raw rawMultisigTxEntry
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestNormalizeTransactionFullEntry(t *testing.T) {
	raw := rawEntry(t, `{
		"safeTxHash": "0xABCDEF",
		"to": "0xDeAdBeEfDeAdBeEfDeAdBeEfDeAdBeEfDeAdBeEf",
		"value": "1500000000000000000",
		"data": "0xa9059cbb",
		"nonce": 42,
		"submissionDate": "2026-08-01T10:30:00Z",
		"isExecuted": false,
		"confirmationsRequired": 3,
		"confirmations": [{}, {}],
		"dataDecoded": {"method": "transfer"}
	}`)

	tx, ok := normalizeTransaction(raw)
	require.True(t, ok)
	assert.Equal(t, "0xabcdef", tx.SafeTxHash)
	assert.Equal(t, "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", tx.To)
	assert.Equal(t, "1500000000000000000", tx.Value)
	assert.Equal(t, "0xa9059cbb", tx.Data)
	assert.Equal(t, "transfer", tx.Method)
	assert.Equal(t, uint64(42), tx.Nonce)
	assert.Equal(t, 2, tx.Confirmations)
	assert.Equal(t, 3, tx.Threshold)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC), tx.SubmittedAt)
}

func TestNormalizeTransactionDetailedExecutionInfoFallback(t *testing.T) {
	// Some service versions only carry confirmation data in
	// detailedExecutionInfo.
	raw := rawEntry(t, `{
		"safeTxHash": "0xaaa",
		"to": "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		"value": "0",
		"nonce": 1,
		"isExecuted": false,
		"detailedExecutionInfo": {
			"confirmationsRequired": 2,
			"confirmations": [{}]
		}
	}`)

	tx, ok := normalizeTransaction(raw)
	require.True(t, ok)
	assert.Equal(t, 1, tx.Confirmations)
	assert.Equal(t, 2, tx.Threshold)
}

func TestNormalizeTransactionDefaults(t *testing.T) {
	raw := rawEntry(t, `{
		"safeTxHash": "0xaaa",
		"to": "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		"nonce": 0,
		"isExecuted": false
	}`)

	tx, ok := normalizeTransaction(raw)
	require.True(t, ok)
	assert.Equal(t, "0", tx.Value, "missing value defaults to zero")
	assert.Equal(t, 0, tx.Confirmations)
	assert.Equal(t, 1, tx.Threshold, "missing threshold defaults to one")
	assert.True(t, tx.SubmittedAt.IsZero())
}

func TestNormalizeTransactionRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing hash",
			body: `{"to": "0xdead", "nonce": 1, "isExecuted": false}`,
		},
		{
			name: "already executed",
			body: `{"safeTxHash": "0xaaa", "nonce": 1, "isExecuted": true}`,
		},
		{
			name: "negative nonce",
			body: `{"safeTxHash": "0xaaa", "nonce": -3, "isExecuted": false}`,
		},
		{
			name: "non numeric nonce",
			body: `{"safeTxHash": "0xaaa", "nonce": "abc", "isExecuted": false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw rawMultisigTxEntry
			// Some rejects stem from the decode itself, some from
			// normalization; either way nothing usable comes out.
			if err := json.Unmarshal([]byte(tt.body), &raw); err != nil {
				return
			}
			_, ok := normalizeTransaction(raw)
			assert.False(t, ok)
		})
	}
}
