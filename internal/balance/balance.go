// Package balance nets a collection of bills into signed per-counterparty
// balances relative to a reference participant.
package balance

import (
	"sort"

	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/money"
)

// NetBalances walks bills and nets every allocation into signed balances
// relative to self. A positive entry means that participant owes self; a
// negative entry means self owes them.
//
// Bills that involve neither self as payer nor self as participant do not
// affect the result. Computed symmetrically for every participant in turn,
// the full matrix is antisymmetric and every bill nets to zero across its
// own participant set.
func NetBalances(bills []models.Bill, self string) map[string]money.Money {
	balances := make(map[string]money.Money)

	for i := range bills {
		bill := &bills[i]
		for p, share := range bill.Allocation {
			if p == bill.Payer {
				continue
			}
			switch {
			case bill.Payer == self:
				balances[p] = balances[p].Add(share)
			case p == self:
				balances[bill.Payer] = balances[bill.Payer].Sub(share)
			}
		}
	}
	return balances
}

// GroupNet computes every participant's net position over a bill set in one
// pass: total paid minus total owed. Positive means the participant is owed
// money by the rest of the group. The map sums to zero, up to the one-cent
// tolerance a custom split is allowed to carry.
func GroupNet(bills []models.Bill) map[string]money.Money {
	net := make(map[string]money.Money)
	for i := range bills {
		bill := &bills[i]
		net[bill.Payer] = net[bill.Payer].Add(bill.Amount)
		for p, share := range bill.Allocation {
			net[p] = net[p].Sub(share)
		}
	}
	return net
}

// Summary is the owner-level rollup shown on the overview screen.
type Summary struct {
	// Net is the overall position: TotalOwedToSelf - TotalSelfOwes.
	Net money.Money

	// TotalOwedToSelf sums every positive counterparty balance.
	TotalOwedToSelf money.Money

	// TotalSelfOwes sums the magnitude of every negative balance.
	TotalSelfOwes money.Money

	// PerFriend is the underlying per-counterparty net map.
	PerFriend map[string]money.Money
}

// Summarize rolls the net balances up into owed/owing totals.
func Summarize(bills []models.Bill, self string) Summary {
	per := NetBalances(bills, self)
	s := Summary{PerFriend: per}
	for _, v := range per {
		if v.IsPositive() {
			s.TotalOwedToSelf = s.TotalOwedToSelf.Add(v)
		} else {
			s.TotalSelfOwes = s.TotalSelfOwes.Add(v.Neg())
		}
	}
	s.Net = s.TotalOwedToSelf.Sub(s.TotalSelfOwes)
	return s
}

// Transfer is a suggested payment from one participant to another. These
// are display suggestions only; the ledger never executes settlements.
type Transfer struct {
	From   string
	To     string
	Amount money.Money
}

// Simplify turns a net-balance map (positive = creditor, negative = debtor)
// into a short list of transfers that zeroes it out. Greedy matching:
// largest debtor pays largest creditor first.
func Simplify(net map[string]money.Money) []Transfer {
	type entry struct {
		name   string
		amount money.Money
	}

	var creditors, debtors []entry
	for name, v := range net {
		switch {
		case v.IsPositive():
			creditors = append(creditors, entry{name, v})
		case v.IsNegative():
			debtors = append(debtors, entry{name, v.Neg()})
		}
	}

	byAmountDesc := func(s []entry) {
		sort.Slice(s, func(i, j int) bool {
			if s[i].amount != s[j].amount {
				return s[i].amount > s[j].amount
			}
			return s[i].name < s[j].name
		})
	}
	byAmountDesc(creditors)
	byAmountDesc(debtors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount.Cmp(amount) < 0 {
			amount = creditors[j].amount
		}

		if amount.IsPositive() {
			transfers = append(transfers, Transfer{
				From:   debtors[i].name,
				To:     creditors[j].name,
				Amount: amount,
			})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}
	return transfers
}
