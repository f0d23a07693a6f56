package notify

import (
	"fmt"
	"html"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"

	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/pkg/utils"
)

// chainPrefixes maps chain ids to the short prefixes the Safe web app uses
// in its wallet URLs.
var chainPrefixes = map[int64]string{
	1:        "eth",
	10:       "oeth",
	100:      "gno",
	137:      "matic",
	8453:     "base",
	42161:    "arb1",
	11155111: "sep",
}

// chainNames maps chain ids to human-readable network names.
var chainNames = map[int64]string{
	1:        "Ethereum",
	10:       "Optimism",
	100:      "Gnosis Chain",
	137:      "Polygon",
	8453:     "Base",
	42161:    "Arbitrum One",
	11155111: "Sepolia",
}

// Formatter renders notification events into human-readable messages.
type Formatter struct {
	signingBaseURL string
}

// NewFormatter creates a message formatter
func NewFormatter(signingBaseURL string) *Formatter {
	if signingBaseURL == "" {
		signingBaseURL = "https://app.safe.global"
	}
	return &Formatter{signingBaseURL: strings.TrimRight(signingBaseURL, "/")}
}

// SigningLink returns the deep link to the wallet's transaction queue in
// the signing UI.
func (f *Formatter) SigningLink(wallet *models.MonitoredWallet) string {
	address := utils.ChecksumAddress(wallet.Address)
	if prefix, ok := chainPrefixes[wallet.ChainID]; ok {
		return fmt.Sprintf("%s/transactions/queue?safe=%s:%s", f.signingBaseURL, prefix, address)
	}
	return fmt.Sprintf("%s/transactions/queue?safe=%s", f.signingBaseURL, address)
}

// ChainName returns a display name for a chain id.
func (f *Formatter) ChainName(chainID int64) string {
	if name, ok := chainNames[chainID]; ok {
		return name
	}
	return fmt.Sprintf("chain %d", chainID)
}

// Plain renders a single-line text message for log and plain-text sinks.
func (f *Formatter) Plain(event *models.NotificationEvent) string {
	tx := event.Transaction
	wallet := event.Wallet

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction awaiting signature on %s for %s: %s",
		f.ChainName(wallet.ChainID), wallet.DisplayName(), tx.SafeTxHash)
	if tx.Method != "" {
		fmt.Fprintf(&sb, " method=%s", tx.Method)
	}
	fmt.Fprintf(&sb, " to=%s value=%s ETH confirmations=%d/%d nonce=%d",
		tx.To, FormatEther(tx.Value), event.Confirmations, event.Threshold, tx.Nonce)
	return sb.String()
}

// HTML renders a Telegram-compatible HTML message.
func (f *Formatter) HTML(event *models.NotificationEvent) string {
	tx := event.Transaction
	wallet := event.Wallet

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔏 <b>Transaction awaiting signature</b>\n\n")
	fmt.Fprintf(&sb, "<b>Safe:</b> %s (%s)\n",
		html.EscapeString(wallet.DisplayName()), html.EscapeString(f.ChainName(wallet.ChainID)))
	if tx.Method != "" {
		fmt.Fprintf(&sb, "<b>Action:</b> <code>%s</code>\n", html.EscapeString(tx.Method))
	}
	fmt.Fprintf(&sb, "<b>To:</b> <code>%s</code>\n", html.EscapeString(utils.ChecksumAddress(tx.To)))
	fmt.Fprintf(&sb, "<b>Value:</b> %s ETH\n", FormatEther(tx.Value))
	fmt.Fprintf(&sb, "<b>Confirmations:</b> %d of %d\n", event.Confirmations, event.Threshold)
	fmt.Fprintf(&sb, "<b>Hash:</b> <code>%s</code>\n\n", html.EscapeString(tx.SafeTxHash))
	fmt.Fprintf(&sb, "<a href=\"%s\">Review and sign</a>", f.SigningLink(wallet))
	return sb.String()
}

// FormatEther converts a decimal wei string into a trimmed ether amount.
// Unparseable values are rendered as-is.
func FormatEther(wei string) string {
	amount, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return wei
	}
	if amount.Sign() == 0 {
		return "0"
	}

	ether := new(big.Rat).SetFrac(amount, big.NewInt(params.Ether))
	text := ether.FloatString(6)
	text = strings.TrimRight(text, "0")
	text = strings.TrimRight(text, ".")
	return text
}
