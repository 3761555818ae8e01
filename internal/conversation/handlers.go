package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/walletbot/internal/account"
	"github.com/m3rciful/walletbot/internal/ledger"
)

// A handler interprets one input for the account's current state. It commits its own
// transition through the machine and returns the notices to show before the next prompt.
// account.ErrUnknownSelection and ErrIncompleteFlow are recovered by the machine.
type handler func(ctx context.Context, m *Machine, acc *account.Account, in string) ([]string, error)

type stateHandlers struct {
	text      handler
	selection handler
}

var dispatch = map[account.State]stateHandlers{
	account.StateMainMenu: {text: resumeText, selection: mainMenuSelect},

	account.StateDepositAmount:           {text: depositFlow.amountInput, selection: depositFlow.inputSelect},
	account.StateSelectDepositMethod:     {text: resumeText, selection: depositFlow.methodSelect},
	account.StateAddDepositMethodType:    {text: resumeText, selection: depositFlow.addTypeSelect},
	account.StateAddDepositMethodDetails: {text: depositFlow.detailsInput, selection: depositFlow.detailsSelect},
	account.StateConfirmDeposit:          {text: resumeText, selection: depositFlow.confirmSelect},

	account.StateWithdrawAmount:             {text: withdrawalFlow.amountInput, selection: withdrawalFlow.inputSelect},
	account.StateSelectWithdrawalMethod:     {text: resumeText, selection: withdrawalFlow.methodSelect},
	account.StateAddWithdrawalMethodType:    {text: resumeText, selection: withdrawalFlow.addTypeSelect},
	account.StateAddWithdrawalMethodDetails: {text: withdrawalFlow.detailsInput, selection: withdrawalFlow.detailsSelect},
	account.StateConfirmWithdrawal:          {text: resumeText, selection: withdrawalFlow.confirmSelect},
}

func init() {
	if err := checkTables(); err != nil {
		panic(err)
	}
}

// checkTables verifies that every state can be handled and rendered.
func checkTables() error {
	for _, st := range account.States {
		h, ok := dispatch[st]
		if !ok || h.text == nil || h.selection == nil {
			return fmt.Errorf("conversation: state %s has no handler", st)
		}
		if renderers[st] == nil {
			return fmt.Errorf("conversation: state %s has no renderer", st)
		}
	}
	return nil
}

// isInputState reports whether free text is parsed as data in st.
func isInputState(st account.State) bool {
	switch st {
	case account.StateDepositAmount, account.StateAddDepositMethodDetails,
		account.StateWithdrawAmount, account.StateAddWithdrawalMethodDetails:
		return true
	}
	return false
}

// resumeText handles free text outside the input states.
func resumeText(context.Context, *Machine, *account.Account, string) ([]string, error) {
	return []string{resumeNotice}, nil
}

func mainMenuSelect(ctx context.Context, m *Machine, acc *account.Account, token string) ([]string, error) {
	switch token {
	case TokenViewBalance:
		return []string{balanceNotice(acc.Balance)}, nil
	case TokenDeposit:
		return nil, m.commit(ctx, acc, account.Transition(depositFlow.amount, account.Scratch{}))
	case TokenWithdraw:
		return nil, m.commit(ctx, acc, account.Transition(withdrawalFlow.amount, account.Scratch{}))
	}
	return nil, account.ErrUnknownSelection
}

// amountInput parses the amount typed in the *_AMOUNT states.
func (f flow) amountInput(ctx context.Context, m *Machine, acc *account.Account, text string) ([]string, error) {
	in := NormalizeInput(text)
	if IsSentinel(in) {
		return []string{f.canceledNotice()}, m.commit(ctx, acc, account.Reset())
	}
	amount, err := ledger.ParseAmount(in)
	if err != nil {
		return []string{invalidAmount}, nil
	}
	if f.list == account.WithdrawalMethods {
		if err := ledger.CheckSufficient(acc.Balance, amount); err != nil {
			return []string{insufficientNotice(acc.Balance)}, nil
		}
	} else if ledger.CheckCredit(acc.Balance, amount) != nil {
		return []string{invalidAmount}, nil
	}
	return nil, m.commit(ctx, acc, account.Transition(f.selectFrom, account.Scratch{Amount: amount}))
}

// inputSelect accepts only a stale cancel button while text input is expected.
func (f flow) inputSelect(ctx context.Context, m *Machine, acc *account.Account, token string) ([]string, error) {
	if token != TokenCancel {
		return nil, account.ErrUnknownSelection
	}
	notice := f.canceledNotice()
	if acc.State == f.addDetails {
		notice = addMethodCancel
	}
	return []string{notice}, m.commit(ctx, acc, account.Reset())
}

func (f flow) methodSelect(ctx context.Context, m *Machine, acc *account.Account, token string) ([]string, error) {
	amount := acc.Scratch.Amount
	switch token {
	case TokenCancel:
		return []string{f.canceledNotice()}, m.commit(ctx, acc, account.Reset())
	case f.addMethodToken():
		return nil, m.commit(ctx, acc, account.Transition(f.addType, account.Scratch{Amount: amount}))
	}

	rest, ok := strings.CutPrefix(token, f.methodPrefix())
	if !ok {
		return nil, account.ErrUnknownSelection
	}
	idx, err := strconv.Atoi(rest)
	methods := acc.Methods(f.list)
	if err != nil || strconv.Itoa(idx) != rest || idx < 0 || idx >= len(methods) {
		return nil, account.ErrUnknownSelection
	}
	if amount <= 0 {
		return nil, ErrIncompleteFlow
	}
	method := methods[idx]
	return nil, m.commit(ctx, acc, account.Transition(f.confirm, account.Scratch{Amount: amount, Method: &method}))
}

func (f flow) addTypeSelect(ctx context.Context, m *Machine, acc *account.Account, token string) ([]string, error) {
	amount := acc.Scratch.Amount
	toDetails := func(kind account.MethodKind) ([]string, error) {
		if amount <= 0 {
			return nil, ErrIncompleteFlow
		}
		return nil, m.commit(ctx, acc, account.Transition(f.addDetails, account.Scratch{Amount: amount, NewMethodKind: &kind}))
	}

	switch token {
	case TokenCancel:
		return []string{f.canceledNotice()}, m.commit(ctx, acc, account.Reset())
	case f.cancelAddToken():
		return []string{addMethodCancel}, m.commit(ctx, acc, account.Transition(f.selectFrom, account.Scratch{Amount: amount}))
	case f.typeToken(account.MethodBank):
		return toDetails(account.Bank())
	case f.typeToken(account.MethodPaypal):
		return toDetails(account.Paypal())
	case f.typeToken(account.MethodCrypto):
		return nil, m.commit(ctx, acc, account.Transition(f.addType, account.Scratch{Amount: amount, PickingCrypto: true}))
	}

	if sym, ok := f.parseCryptoToken(token); ok {
		kind, err := account.Crypto(sym)
		if err != nil {
			return nil, account.ErrUnknownSelection
		}
		return toDetails(kind)
	}
	return nil, account.ErrUnknownSelection
}

func (f flow) parseCryptoToken(token string) (string, bool) {
	rest, ok := strings.CutPrefix(token, "crypto_")
	if !ok {
		return "", false
	}
	sym, ok := strings.CutSuffix(rest, "_"+f.name)
	if !ok || sym == "" {
		return "", false
	}
	return sym, true
}

// detailsInput registers the new method and selects it in one store call.
func (f flow) detailsInput(ctx context.Context, m *Machine, acc *account.Account, text string) ([]string, error) {
	if IsSentinel(NormalizeInput(text)) {
		return []string{addMethodCancel}, m.commit(ctx, acc, account.Reset())
	}
	kind := acc.Scratch.NewMethodKind
	if kind == nil || acc.Scratch.Amount <= 0 {
		return nil, ErrIncompleteFlow
	}
	method, err := account.NewPaymentMethod(*kind, text)
	if errors.Is(err, account.ErrEmptyDetail) {
		return []string{emptyDetail}, nil
	}
	if err != nil {
		return nil, err
	}

	patch := account.Transition(f.confirm, account.Scratch{Amount: acc.Scratch.Amount, Method: &method})
	patch.Append = &account.MethodAppend{List: f.list, Method: method}
	if err := m.commit(ctx, acc, patch); err != nil {
		return nil, err
	}
	return []string{methodAddedNotice(*kind)}, nil
}

func (f flow) detailsSelect(ctx context.Context, m *Machine, acc *account.Account, token string) ([]string, error) {
	return f.inputSelect(ctx, m, acc, token)
}

func (f flow) confirmSelect(ctx context.Context, m *Machine, acc *account.Account, token string) ([]string, error) {
	switch token {
	case TokenCancel:
		return []string{f.canceledNotice()}, m.commit(ctx, acc, account.Reset())
	case f.confirmToken():
	default:
		return nil, account.ErrUnknownSelection
	}

	amount := acc.Scratch.Amount
	if amount <= 0 || acc.Scratch.Method == nil {
		return nil, ErrIncompleteFlow
	}
	if f.list == account.DepositMethods {
		err := m.ledger.Credit(ctx, acc.UserID, amount, account.Reset())
		if errors.Is(err, account.ErrInvalidAmount) {
			// The balance cannot hold the amount; ask for a new one.
			return []string{invalidAmount}, m.commit(ctx, acc, account.Transition(f.amount, account.Scratch{}))
		}
		if err != nil {
			return nil, err
		}
		settle(acc, amount)
		return []string{f.completedNotice(amount)}, nil
	}

	err := m.ledger.Debit(ctx, acc.UserID, amount, account.Reset())
	if errors.Is(err, account.ErrInsufficientFunds) {
		// The balance moved since the amount was accepted; state and balance are untouched.
		fresh, gerr := m.store.Get(ctx, acc.UserID)
		if gerr != nil {
			return nil, gerr
		}
		acc.Balance = fresh.Balance
		return []string{shortBalanceNotice(acc.Balance)}, nil
	}
	if err != nil {
		return nil, err
	}
	settle(acc, -amount)
	return []string{f.completedNotice(amount)}, nil
}

// settle mirrors a committed ledger call on the in-memory account.
func settle(acc *account.Account, delta int64) {
	p := account.Reset()
	p.BalanceDelta = delta
	acc.Apply(p)
}
