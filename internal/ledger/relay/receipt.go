package relay

import (
	"fmt"
	"strconv"
	"strings"
)

// Receipt decoding is versioned and isolated here so a contract event format
// change is a localized update. Decoding fails closed: any shape mismatch
// returns an error and no record id, never a silently wrong id.

// decoderVersion identifies the event layout the decoder understands.
const decoderVersion = "v1"

// Event signature topics for the v1 contract layout. The record id is always
// the second topic of the matching event.
const (
	topicCertificateIssued = "0x43455254" // CertificateIssued(uint256,address)
	topicBadgeAwarded      = "0x42414447" // BadgeAwarded(uint256,address)
)

const recordIDTopicIndex = 1

type receiptLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

type txReceipt struct {
	TxRef string       `json:"tx_ref"`
	Logs  []receiptLog `json:"logs"`
}

// extractRecordID finds the event emitted by the given contract with the given
// signature topic and parses its record id topic as a decimal or 0x-hex uint.
func extractRecordID(receipt txReceipt, contract, signature string) (int64, error) {
	for _, entry := range receipt.Logs {
		if !strings.EqualFold(entry.Address, contract) {
			continue
		}
		if len(entry.Topics) == 0 || !strings.EqualFold(entry.Topics[0], signature) {
			continue
		}
		if len(entry.Topics) <= recordIDTopicIndex {
			return 0, fmt.Errorf("receipt decoder %s: event %s missing record id topic", decoderVersion, signature)
		}
		id, err := parseUint(entry.Topics[recordIDTopicIndex])
		if err != nil {
			return 0, fmt.Errorf("receipt decoder %s: record id topic: %w", decoderVersion, err)
		}
		return id, nil
	}
	return 0, fmt.Errorf("receipt decoder %s: no matching event for %s", decoderVersion, signature)
}

func parseUint(s string) (int64, error) {
	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		s = rest
		base = 16
	}
	id, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("negative record id %d", id)
	}
	return id, nil
}
