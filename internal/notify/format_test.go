package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/safewatch/safewatch/internal/models"
)

func testEvent() *models.NotificationEvent {
	return &models.NotificationEvent{
		Wallet: &models.MonitoredWallet{
			ID:      "wallet-1",
			ChainID: 1,
			Address: "0x5afe3855358e112b5647b952709e6165e1c1eeee",
			Name:    "Treasury",
		},
		Transaction: &models.PendingTransaction{
			SafeTxHash:    "0xabc123",
			To:            "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
			Value:         "1500000000000000000",
			Method:        "transfer",
			Nonce:         42,
			Confirmations: 1,
			Threshold:     3,
		},
		Confirmations: 1,
		Threshold:     3,
		Reason:        models.ReasonNew,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestSigningLinkKnownChain(t *testing.T) {
	f := NewFormatter("")
	link := f.SigningLink(&models.MonitoredWallet{
		ChainID: 137,
		Address: "0x5afe3855358e112b5647b952709e6165e1c1eeee",
	})

	assert.Contains(t, link, "https://app.safe.global/transactions/queue?safe=matic:")
	assert.Contains(t, link, "0x", "address must be present in the link")
}

func TestSigningLinkUnknownChainOmitsPrefix(t *testing.T) {
	f := NewFormatter("https://safe.example.com/")
	link := f.SigningLink(&models.MonitoredWallet{
		ChainID: 31337,
		Address: "0x5afe3855358e112b5647b952709e6165e1c1eeee",
	})

	assert.Contains(t, link, "https://safe.example.com/transactions/queue?safe=0x")
	assert.NotContains(t, link, ":0x")
}

func TestPlainMessageContent(t *testing.T) {
	f := NewFormatter("")
	msg := f.Plain(testEvent())

	assert.Contains(t, msg, "Ethereum")
	assert.Contains(t, msg, "Treasury")
	assert.Contains(t, msg, "0xabc123")
	assert.Contains(t, msg, "method=transfer")
	assert.Contains(t, msg, "value=1.5 ETH")
	assert.Contains(t, msg, "confirmations=1/3")
	assert.Contains(t, msg, "nonce=42")
}

func TestHTMLMessageEscapesContent(t *testing.T) {
	event := testEvent()
	event.Wallet.Name = "Ops <script>"
	event.Transaction.Method = "swap<b>"

	f := NewFormatter("")
	msg := f.HTML(event)

	assert.Contains(t, msg, "Ops &lt;script&gt;")
	assert.Contains(t, msg, "swap&lt;b&gt;")
	assert.Contains(t, msg, "Review and sign")
	assert.NotContains(t, msg, "<script>")
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"0", "0"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"1", "0"}, // below display precision
		{"123456789000000000000", "123.456789"},
		{"not-a-number", "not-a-number"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEther(tt.wei), "wei=%s", tt.wei)
	}
}
