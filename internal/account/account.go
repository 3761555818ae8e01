// Package account holds the wallet domain model shared by the store, the ledger and the
// conversation state machine.
package account

import "slices"

// State identifies a node of the conversation state machine. States are persisted by name.
type State string

const (
	StateMainMenu                   State = "MAIN_MENU"
	StateDepositAmount              State = "DEPOSIT_AMOUNT"
	StateSelectDepositMethod        State = "SELECT_DEPOSIT_METHOD"
	StateAddDepositMethodType       State = "ADD_DEPOSIT_METHOD_TYPE"
	StateAddDepositMethodDetails    State = "ADD_DEPOSIT_METHOD_DETAILS"
	StateConfirmDeposit             State = "CONFIRM_DEPOSIT"
	StateWithdrawAmount             State = "WITHDRAW_AMOUNT"
	StateSelectWithdrawalMethod     State = "SELECT_WITHDRAWAL_METHOD"
	StateAddWithdrawalMethodType    State = "ADD_WITHDRAWAL_METHOD_TYPE"
	StateAddWithdrawalMethodDetails State = "ADD_WITHDRAWAL_METHOD_DETAILS"
	StateConfirmWithdrawal          State = "CONFIRM_WITHDRAWAL"
)

// States lists every state of the machine. Dispatch tables are checked against it.
var States = []State{
	StateMainMenu,
	StateDepositAmount,
	StateSelectDepositMethod,
	StateAddDepositMethodType,
	StateAddDepositMethodDetails,
	StateConfirmDeposit,
	StateWithdrawAmount,
	StateSelectWithdrawalMethod,
	StateAddWithdrawalMethodType,
	StateAddWithdrawalMethodDetails,
	StateConfirmWithdrawal,
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	return slices.Contains(States, s)
}

// MethodList names one of the two ordered payment method sequences of an account.
type MethodList string

const (
	DepositMethods    MethodList = "deposit_methods"
	WithdrawalMethods MethodList = "withdrawal_methods"
)

// Legacy marks fields that were absent from a stored record written by an older schema.
type Legacy struct {
	DepositMethods    bool
	WithdrawalMethods bool
	State             bool
	Scratch           bool
}

func (l Legacy) any() bool {
	return l.DepositMethods || l.WithdrawalMethods || l.State || l.Scratch
}

// Account is the per-user record: balance, payment methods and conversation progress.
type Account struct {
	UserID            int64
	Balance           int64
	DepositMethods    []PaymentMethod
	WithdrawalMethods []PaymentMethod
	State             State
	Scratch           Scratch

	// Legacy is populated by stores when the record predates the conversation columns.
	Legacy Legacy
}

// New returns the default account for a first contact.
func New(userID int64) *Account {
	return &Account{
		UserID:            userID,
		DepositMethods:    []PaymentMethod{},
		WithdrawalMethods: []PaymentMethod{},
		State:             StateMainMenu,
	}
}

// Methods returns the sequence named by list.
func (a *Account) Methods(list MethodList) []PaymentMethod {
	if list == WithdrawalMethods {
		return a.WithdrawalMethods
	}
	return a.DepositMethods
}

// Backfill fills defaults for fields missing from a legacy record and returns the patch that
// persists them. ok is false when the record is already current.
func (a *Account) Backfill() (patch Patch, ok bool) {
	if !a.Legacy.any() {
		return Patch{}, false
	}
	if a.Legacy.DepositMethods {
		a.DepositMethods = []PaymentMethod{}
		patch.DepositMethods = &[]PaymentMethod{}
	}
	if a.Legacy.WithdrawalMethods {
		a.WithdrawalMethods = []PaymentMethod{}
		patch.WithdrawalMethods = &[]PaymentMethod{}
	}
	if a.Legacy.State {
		a.State = StateMainMenu
		patch.State = StatePtr(StateMainMenu)
	}
	if a.Legacy.Scratch {
		a.Scratch = Scratch{}
		patch.Scratch = &Scratch{}
	}
	a.Legacy = Legacy{}
	return patch, true
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.DepositMethods = slices.Clone(a.DepositMethods)
	out.WithdrawalMethods = slices.Clone(a.WithdrawalMethods)
	out.Scratch = a.Scratch.Clone()
	return &out
}

// Apply merges the patch into the in-memory account. Balance guards are the caller's job.
func (a *Account) Apply(p Patch) {
	if p.State != nil {
		a.State = *p.State
	}
	if p.Scratch != nil {
		a.Scratch = p.Scratch.Clone()
	}
	if p.DepositMethods != nil {
		a.DepositMethods = slices.Clone(*p.DepositMethods)
	}
	if p.WithdrawalMethods != nil {
		a.WithdrawalMethods = slices.Clone(*p.WithdrawalMethods)
	}
	a.Balance += p.BalanceDelta
	if p.Append != nil {
		switch p.Append.List {
		case WithdrawalMethods:
			a.WithdrawalMethods = append(a.WithdrawalMethods, p.Append.Method)
		default:
			a.DepositMethods = append(a.DepositMethods, p.Append.Method)
		}
	}
}
