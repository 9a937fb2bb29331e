package intake

import (
	"github.com/shopspring/decimal"

	"github.com/stroymat/materials-bot/internal/advisor"
	"github.com/stroymat/materials-bot/internal/catalog"
	"github.com/stroymat/materials-bot/internal/models"
)

type State int

const (
	StateIdle State = iota
	StateMaterialSelection
	StateQuantityInput
	StateAddressInput
	StateContactInput
	StateConfirmation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMaterialSelection:
		return "material_selection"
	case StateQuantityInput:
		return "quantity_input"
	case StateAddressInput:
		return "address_input"
	case StateContactInput:
		return "contact_input"
	case StateConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Session is the dialogue position of one user. Each variant carries only
// what has been validated so far.
type Session interface {
	State() State
	session()
}

type Idle struct{}

// MaterialSelection remembers the last recommendation offered, if any.
type MaterialSelection struct {
	Advice *advisor.Recommendation
}

type QuantityInput struct {
	Material catalog.Entry
	Advice   string // explanation carried into the order when the advice was taken
}

// AddressInput holds the price computed when the quantity was accepted.
type AddressInput struct {
	QuantityInput
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

type ContactInput struct {
	AddressInput
	Address string
}

type Confirmation struct {
	Order models.Order
}

func (Idle) State() State              { return StateIdle }
func (MaterialSelection) State() State { return StateMaterialSelection }
func (QuantityInput) State() State     { return StateQuantityInput }
func (AddressInput) State() State      { return StateAddressInput }
func (ContactInput) State() State      { return StateContactInput }
func (Confirmation) State() State      { return StateConfirmation }

func (Idle) session()              {}
func (MaterialSelection) session() {}
func (QuantityInput) session()     {}
func (AddressInput) session()      {}
func (ContactInput) session()      {}
func (Confirmation) session()      {}
