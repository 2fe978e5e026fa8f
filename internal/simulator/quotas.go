package simulator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

var (
	errUnknownCategory = errors.New("unknown category")
	errInvalidQuantity = errors.New("invalid quantity")
	errQuotaExceeded   = errors.New("quantity exceeds remaining quota")
	errEmptyBatch      = errors.New("no transactions")
)

type balance struct {
	category        string
	quantity        int64
	transactionTime *supply.EpochMillis
}

// quotaLedger tracks remaining allowance and redemption history per identity.
type quotaLedger struct {
	mutex         sync.Mutex
	categories    map[string]struct{}
	defaults      []SeedItem
	balances      map[string][]*balance
	history       map[string][]supply.QuotaHistoryEntry
	lastTimestamp int64
}

func newQuotaLedger(seed Seed) *quotaLedger {
	ledger := &quotaLedger{
		categories: make(map[string]struct{}, len(seed.Env.Policies)),
		defaults:   append([]SeedItem(nil), seed.Quotas.Default...),
		balances:   make(map[string][]*balance, len(seed.Quotas.Identities)),
		history:    make(map[string][]supply.QuotaHistoryEntry),
	}
	for _, policy := range seed.Env.Policies {
		ledger.categories[policy.Category] = struct{}{}
	}
	for identity, items := range seed.Quotas.Identities {
		ledger.balances[identity] = newBalances(items)
	}
	return ledger
}

func newBalances(items []SeedItem) []*balance {
	balances := make([]*balance, 0, len(items))
	for _, item := range items {
		balances = append(balances, &balance{category: item.Category, quantity: item.Quantity})
	}
	return balances
}

func (ledger *quotaLedger) quota(identity string) supply.Quota {
	ledger.mutex.Lock()
	defer ledger.mutex.Unlock()
	balances := ledger.balancesLocked(identity)
	quota := supply.Quota{RemainingQuota: make([]supply.ItemQuota, 0, len(balances))}
	for _, entry := range balances {
		quota.RemainingQuota = append(quota.RemainingQuota, supply.ItemQuota{
			Category:        entry.category,
			Quantity:        entry.quantity,
			TransactionTime: entry.transactionTime,
		})
	}
	return quota
}

func (ledger *quotaLedger) summary(identity string) supply.QuotaSummary {
	ledger.mutex.Lock()
	defer ledger.mutex.Unlock()
	summary := supply.QuotaSummary{History: append([]supply.QuotaHistoryEntry{}, ledger.history[identity]...)}
	for _, entry := range ledger.balancesLocked(identity) {
		summary.RemainingQuota += entry.quantity
	}
	return summary
}

// redeem applies transactions atomically. With grouping they share one
// timestamp, otherwise each forms its own group.
func (ledger *quotaLedger) redeem(identity string, transactions []supply.Transaction, grouping bool, now time.Time) ([]supply.TransactionGroup, error) {
	ledger.mutex.Lock()
	defer ledger.mutex.Unlock()
	if len(transactions) == 0 {
		return nil, errEmptyBatch
	}
	balances := ledger.balancesLocked(identity)
	index := make(map[string]*balance, len(balances))
	for _, entry := range balances {
		index[entry.category] = entry
	}
	requested := make(map[string]int64, len(transactions))
	for _, transaction := range transactions {
		if _, ok := ledger.categories[transaction.Category]; !ok {
			return nil, fmt.Errorf("%w: %q", errUnknownCategory, transaction.Category)
		}
		if transaction.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %q must be greater than zero", errInvalidQuantity, transaction.Category)
		}
		requested[transaction.Category] += transaction.Quantity
		entry, ok := index[transaction.Category]
		if !ok || requested[transaction.Category] > entry.quantity {
			return nil, fmt.Errorf("%w: %q", errQuotaExceeded, transaction.Category)
		}
	}

	var groups []supply.TransactionGroup
	if grouping {
		groups = []supply.TransactionGroup{{Transaction: transactions, Timestamp: ledger.nextTimestampLocked(now)}}
	} else {
		groups = make([]supply.TransactionGroup, 0, len(transactions))
		for _, transaction := range transactions {
			groups = append(groups, supply.TransactionGroup{Transaction: []supply.Transaction{transaction}, Timestamp: ledger.nextTimestampLocked(now)})
		}
	}
	for _, group := range groups {
		timestamp := group.Timestamp
		for _, transaction := range group.Transaction {
			entry := index[transaction.Category]
			entry.quantity -= transaction.Quantity
			entry.transactionTime = &timestamp
			ledger.history[identity] = append(ledger.history[identity], supply.QuotaHistoryEntry{Quantity: transaction.Quantity, TransactionTime: timestamp})
		}
	}
	return groups, nil
}

func (ledger *quotaLedger) balancesLocked(identity string) []*balance {
	balances, ok := ledger.balances[identity]
	if !ok {
		balances = newBalances(ledger.defaults)
		ledger.balances[identity] = balances
	}
	return balances
}

// nextTimestampLocked returns now in epoch milliseconds, strictly after the
// previous timestamp handed out.
func (ledger *quotaLedger) nextTimestampLocked(now time.Time) supply.EpochMillis {
	millis := now.UnixMilli()
	if millis <= ledger.lastTimestamp {
		millis = ledger.lastTimestamp + 1
	}
	ledger.lastTimestamp = millis
	return supply.NewEpochMillis(millis)
}
