package repository

import (
	"errors"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/model"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrConditionFailed        = errors.New("conditional update matched no rows")
	ErrDuplicateAccountNumber = errors.New("account number already exists")
)

// counterColumns - белый список колонок дневных счетчиков
var counterColumns = map[model.DailyCounter]string{
	model.CounterDeposit:    "daily_deposit",
	model.CounterWithdrawal: "daily_withdrawal",
	model.CounterTransfer:   "daily_transfer",
}

// BalanceUpdate описывает одно условное изменение баланса.
// Предикат и изменение применяются хранилищем одной операцией:
// баланс после изменения должен лежать в [Floor, Ceiling], счет должен быть
// активным (если RequireActive), а счетчик Counter после прибавления CounterDelta
// не должен превышать CounterLimit (если задан).
type BalanceUpdate struct {
	Delta         decimal.Decimal
	Floor         decimal.Decimal
	Ceiling       decimal.Decimal
	RequireActive bool
	Counter       model.DailyCounter
	CounterDelta  decimal.Decimal
	CounterLimit  *decimal.Decimal
}

// Matches проверяет предикат на снимке счета
func (u BalanceUpdate) Matches(a *model.Account) bool {
	next := a.Balance.Add(u.Delta)
	if next.LessThan(u.Floor) || next.GreaterThan(u.Ceiling) {
		return false
	}
	if u.RequireActive && !a.IsActive() {
		return false
	}
	if u.Counter != model.CounterNone && u.CounterLimit != nil {
		if a.DailyStats.Get(u.Counter).Add(u.CounterDelta).GreaterThan(*u.CounterLimit) {
			return false
		}
	}
	return true
}

// Apply изменяет снимок счета; вызывается только после Matches.
// Счетчик не опускается ниже нуля: возврат после ночного сброса не должен давать минус.
func (u BalanceUpdate) Apply(a *model.Account) {
	a.Balance = a.Balance.Add(u.Delta)
	if u.Counter != model.CounterNone {
		a.DailyStats.Add(u.Counter, u.CounterDelta)
		if a.DailyStats.Get(u.Counter).IsNegative() {
			a.DailyStats.Add(u.Counter, a.DailyStats.Get(u.Counter).Neg())
		}
	}
}
