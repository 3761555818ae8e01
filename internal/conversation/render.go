package conversation

import (
	"errors"
	"fmt"

	"github.com/m3rciful/walletbot/internal/account"
)

// ErrIncompleteFlow reports a persisted state whose scratch lacks the data the state needs.
var ErrIncompleteFlow = errors.New("conversation: incomplete flow data")

type renderer func(acc *account.Account) (Prompt, error)

var renderers = map[account.State]renderer{
	account.StateMainMenu:                   renderMainMenu,
	account.StateDepositAmount:              depositFlow.renderAmount,
	account.StateSelectDepositMethod:        depositFlow.renderSelect,
	account.StateAddDepositMethodType:       depositFlow.renderAddType,
	account.StateAddDepositMethodDetails:    depositFlow.renderAddDetails,
	account.StateConfirmDeposit:             depositFlow.renderConfirm,
	account.StateWithdrawAmount:             withdrawalFlow.renderAmount,
	account.StateSelectWithdrawalMethod:     withdrawalFlow.renderSelect,
	account.StateAddWithdrawalMethodType:    withdrawalFlow.renderAddType,
	account.StateAddWithdrawalMethodDetails: withdrawalFlow.renderAddDetails,
	account.StateConfirmWithdrawal:          withdrawalFlow.renderConfirm,
}

// Render reconstructs the prompt for the account's persisted state and scratch. It has no
// side effects and is the only source of prompts, so a resumed session sees exactly what
// the live flow showed.
func Render(acc *account.Account) (Prompt, error) {
	if acc == nil {
		return Prompt{}, fmt.Errorf("conversation: render: nil account")
	}
	r, ok := renderers[acc.State]
	if !ok {
		return Prompt{}, fmt.Errorf("conversation: render: unknown state %q", acc.State)
	}
	return r(acc)
}

func renderMainMenu(*account.Account) (Prompt, error) {
	return Prompt{
		Text: mainMenuText,
		Options: []Option{
			{Label: "View Balance", Token: TokenViewBalance},
			{Label: "Deposit", Token: TokenDeposit},
			{Label: "Withdraw", Token: TokenWithdraw},
		},
	}, nil
}

func (f flow) renderAmount(*account.Account) (Prompt, error) {
	return Prompt{Text: f.amountText()}, nil
}

func (f flow) renderSelect(acc *account.Account) (Prompt, error) {
	if acc.Scratch.Amount <= 0 {
		return Prompt{}, ErrIncompleteFlow
	}
	methods := acc.Methods(f.list)
	opts := make([]Option, 0, len(methods)+2)
	for i, m := range methods {
		opts = append(opts, Option{Label: m.Description, Token: f.methodToken(i)})
	}
	opts = append(opts,
		Option{Label: addMethodLabel, Token: f.addMethodToken()},
		Option{Label: cancelLabel, Token: TokenCancel},
	)
	return Prompt{Text: f.selectText(), Options: opts}, nil
}

func (f flow) renderAddType(acc *account.Account) (Prompt, error) {
	if acc.Scratch.Amount <= 0 {
		return Prompt{}, ErrIncompleteFlow
	}
	if acc.Scratch.PickingCrypto {
		opts := make([]Option, 0, len(account.CryptoSymbols)+1)
		for _, sym := range account.CryptoSymbols {
			opts = append(opts, Option{Label: sym, Token: f.cryptoToken(sym)})
		}
		opts = append(opts, Option{Label: cancelLabel, Token: f.cancelAddToken()})
		return Prompt{Text: cryptoMenuText, Options: opts}, nil
	}
	return Prompt{
		Text: methodTypeText,
		Options: []Option{
			{Label: bankTransferText, Token: f.typeToken(account.MethodBank)},
			{Label: "Paypal", Token: f.typeToken(account.MethodPaypal)},
			{Label: "Crypto", Token: f.typeToken(account.MethodCrypto)},
			{Label: cancelLabel, Token: f.cancelAddToken()},
		},
	}, nil
}

func (f flow) renderAddDetails(acc *account.Account) (Prompt, error) {
	if acc.Scratch.Amount <= 0 || acc.Scratch.NewMethodKind == nil {
		return Prompt{}, ErrIncompleteFlow
	}
	return Prompt{Text: f.detailText(*acc.Scratch.NewMethodKind)}, nil
}

func (f flow) renderConfirm(acc *account.Account) (Prompt, error) {
	if acc.Scratch.Amount <= 0 || acc.Scratch.Method == nil {
		return Prompt{}, ErrIncompleteFlow
	}
	return Prompt{
		Text: f.confirmText(acc.Scratch.Amount, *acc.Scratch.Method),
		Options: []Option{
			{Label: confirmLabel, Token: f.confirmToken()},
			{Label: cancelLabel, Token: TokenCancel},
		},
	}, nil
}
