package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Plan string

const (
	PlanNormal   Plan = "NORMAL"
	PlanSilver   Plan = "SILVER"
	PlanGold     Plan = "GOLD"
	PlanPlatinum Plan = "PLATINUM"
)

// Plans lists every plan in menu order.
var Plans = []Plan{PlanNormal, PlanSilver, PlanGold, PlanPlatinum}

type planLimits struct {
	withdraw decimal.Decimal
	deposit  decimal.Decimal
}

var limitsByPlan = map[Plan]planLimits{
	PlanNormal:   {withdraw: decimal.NewFromInt(200), deposit: decimal.NewFromInt(300)},
	PlanSilver:   {withdraw: decimal.NewFromInt(1000), deposit: decimal.NewFromInt(1500)},
	PlanGold:     {withdraw: decimal.NewFromInt(10000), deposit: decimal.NewFromInt(15000)},
	PlanPlatinum: {withdraw: decimal.NewFromInt(20000), deposit: decimal.NewFromInt(30000)},
}

func (p Plan) IsValid() bool {
	_, ok := limitsByPlan[p]
	return ok
}

// WithdrawLimit returns the plan's withdraw cap. For PlanNormal this is the
// ceiling a customer may choose up to.
func WithdrawLimit(p Plan) (decimal.Decimal, error) {
	l, ok := limitsByPlan[p]
	if !ok {
		return decimal.Zero, fmt.Errorf("WithdrawLimit: %q: %w", p, ErrInvalidPlan)
	}
	return l.withdraw, nil
}

func DepositLimit(p Plan) (decimal.Decimal, error) {
	l, ok := limitsByPlan[p]
	if !ok {
		return decimal.Zero, fmt.Errorf("DepositLimit: %q: %w", p, ErrInvalidPlan)
	}
	return l.deposit, nil
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.IsValid() {
		return "", fmt.Errorf("ParsePlan: %q: %w", s, ErrInvalidPlan)
	}
	return p, nil
}
