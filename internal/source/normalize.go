package source

import (
	"encoding/json"
	"time"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// multisigTransactionsPage mirrors one page of the transaction service's
// multisig-transactions listing.
type multisigTransactionsPage struct {
	Count   int                  `json:"count"`
	Next    *string              `json:"next"`
	Results []rawMultisigTxEntry `json:"results"`
}

// rawMultisigTxEntry carries the loosely-typed service fields that feed the
// canonical PendingTransaction. Confirmation data appears in two places
// depending on service version, so both are decoded here and resolved once.
type rawMultisigTxEntry struct {
	SafeTxHash            string            `json:"safeTxHash"`
	To                    string            `json:"to"`
	Value                 json.Number       `json:"value"`
	Data                  *string           `json:"data"`
	Nonce                 json.Number       `json:"nonce"`
	SubmissionDate        string            `json:"submissionDate"`
	IsExecuted            bool              `json:"isExecuted"`
	ConfirmationsRequired *int              `json:"confirmationsRequired"`
	Confirmations         []json.RawMessage `json:"confirmations"`
	DataDecoded           *struct {
		Method string `json:"method"`
	} `json:"dataDecoded"`
	DetailedExecutionInfo *struct {
		ConfirmationsRequired *int              `json:"confirmationsRequired"`
		Confirmations         []json.RawMessage `json:"confirmations"`
	} `json:"detailedExecutionInfo"`
}

// normalizeTransaction converts one raw service entry into the canonical
// PendingTransaction. Entries without a safe tx hash, or already executed,
// are rejected; the caller counts them as malformed/skipped.
func normalizeTransaction(raw rawMultisigTxEntry) (models.PendingTransaction, bool) {
	if raw.SafeTxHash == "" || raw.IsExecuted {
		return models.PendingTransaction{}, false
	}

	nonce, err := raw.Nonce.Int64()
	if err != nil || nonce < 0 {
		return models.PendingTransaction{}, false
	}

	tx := models.PendingTransaction{
		SafeTxHash:    utils.NormalizeTxHash(raw.SafeTxHash),
		To:            utils.NormalizeAddress(raw.To),
		Value:         raw.Value.String(),
		Nonce:         uint64(nonce),
		Confirmations: confirmationCount(raw),
		Threshold:     confirmationThreshold(raw),
	}
	if tx.Value == "" {
		tx.Value = "0"
	}
	if raw.Data != nil {
		tx.Data = *raw.Data
	}
	if raw.DataDecoded != nil {
		tx.Method = raw.DataDecoded.Method
	}
	if raw.SubmissionDate != "" {
		if ts, err := time.Parse(time.RFC3339, raw.SubmissionDate); err == nil {
			tx.SubmittedAt = ts
		}
	}

	return tx, true
}

// confirmationCount resolves the confirmation count from whichever field
// the service populated for this entry.
func confirmationCount(raw rawMultisigTxEntry) int {
	if raw.Confirmations != nil {
		return len(raw.Confirmations)
	}
	if raw.DetailedExecutionInfo != nil {
		return len(raw.DetailedExecutionInfo.Confirmations)
	}
	return 0
}

// confirmationThreshold resolves the required-confirmations threshold,
// defaulting to 1 when the service omits it entirely.
func confirmationThreshold(raw rawMultisigTxEntry) int {
	if raw.ConfirmationsRequired != nil && *raw.ConfirmationsRequired > 0 {
		return *raw.ConfirmationsRequired
	}
	if raw.DetailedExecutionInfo != nil &&
		raw.DetailedExecutionInfo.ConfirmationsRequired != nil &&
		*raw.DetailedExecutionInfo.ConfirmationsRequired > 0 {
		return *raw.DetailedExecutionInfo.ConfirmationsRequired
	}
	return 1
}
