package lending

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func incentiveAPR(incentives []Incentive) decimal.Decimal {
	total := decimal.Zero
	for _, incentive := range incentives {
		if incentive.Active() {
			total = total.Add(incentive.IncentiveAPR)
		}
	}
	return total
}

// AggregateYield blends every position's supply and borrow yield, weighted by
// USD balance, into portfolio figures relative to net worth. Every position
// must resolve to a reserve of the market, empty ones included; otherwise
// ErrReserveNotFound is returned and no partial figure.
func (e *Engine) AggregateYield(market Market, user UserPositionSnapshot) (Yield, error) {
	if err := CheckEpochs(market, user); err != nil {
		return Yield{}, err
	}
	positive := decimal.Zero
	negative := decimal.Zero

	for _, position := range user.Reserves {
		reserve, err := market.Reserve(position.Asset)
		if err != nil {
			return Yield{}, fmt.Errorf("aggregate yield for %s: %w", user.User, err)
		}
		if reserve.Epoch != market.Epoch {
			return Yield{}, fmt.Errorf("%w: market %d, reserve %s at %d", ErrEpochMismatch, market.Epoch, reserve.Asset, reserve.Epoch)
		}
		supplied := !position.UnderlyingBalance.IsZero()
		variable := !position.VariableBorrows.IsZero()
		stable := !position.StableBorrows.IsZero()
		if !supplied && !variable && !stable {
			continue
		}

		if supplied {
			positive = positive.Add(reserve.SupplyAPY.Mul(position.UnderlyingBalanceUSD))
			positive = positive.Add(incentiveAPR(reserve.SupplyIncentives).Mul(position.UnderlyingBalanceUSD))
		}
		if variable {
			negative = negative.Add(reserve.VariableBorrowAPY.Mul(position.VariableBorrowsUSD))
			rewards := incentiveAPR(reserve.VariableBorrowIncentives).Mul(position.VariableBorrowsUSD)
			positive, negative = e.creditBorrowIncentive(positive, negative, rewards)
		}
		if stable {
			rate := position.StableBorrowAPY
			if rate.IsZero() {
				rate = reserve.StableBorrowAPY
			}
			negative = negative.Add(rate.Mul(position.StableBorrowsUSD))
			rewards := incentiveAPR(reserve.StableBorrowIncentives).Mul(position.StableBorrowsUSD)
			positive, negative = e.creditBorrowIncentive(positive, negative, rewards)
		}
	}

	earned := safeDiv(positive, user.NetWorthUSD).Mul(hundred)
	debt := safeDiv(negative, user.NetWorthUSD).Mul(hundred)
	return Yield{
		EarnedAPY: earned,
		DebtAPY:   debt,
		NetAPY:    earned.Sub(debt),
	}, nil
}

// creditBorrowIncentive books rewards earned on debt. They reduce the cost of
// borrowing unless the legacy accounting is requested, which adds them to the
// earned side instead.
func (e *Engine) creditBorrowIncentive(positive, negative, rewards decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if rewards.IsZero() {
		return positive, negative
	}
	if e.params.LegacyBorrowIncentives {
		return positive.Add(rewards), negative
	}
	return positive, negative.Sub(rewards)
}
