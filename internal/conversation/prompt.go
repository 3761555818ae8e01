package conversation

import (
	"fmt"

	"github.com/m3rciful/walletbot/internal/account"
)

// Option is one selectable menu entry. Token is what a selection event carries back.
type Option struct {
	Label string
	Token string
}

// Prompt is the transport-neutral outbound payload.
type Prompt struct {
	Text    string
	Options []Option
}

// Reply is the result of handling one event: the state the account is left in, plain
// notices to deliver first, then the prompt for that state.
type Reply struct {
	State   account.State
	Notices []string
	Prompt  Prompt
}

// Menu tokens shared by both flows.
const (
	TokenViewBalance = "view_balance"
	TokenDeposit     = "deposit"
	TokenWithdraw    = "withdraw"
	TokenCancel      = "cancel"
)

const (
	mainMenuText     = "Please choose an option:"
	methodTypeText   = "Choose the method type:"
	cryptoMenuText   = "Select the cryptocurrency:"
	cancelHint       = "\n(Type \"cancel\" or \"0\" to cancel)"
	confirmQuestion  = "Do you wish to confirm?"
	invalidAmount    = "Please enter a valid amount greater than zero or \"cancel\" to cancel."
	emptyDetail      = "Please enter a non-empty value or \"cancel\" to cancel."
	resumeNotice     = "Let's resume where we left off."
	operationCancel  = "Operation canceled."
	addMethodCancel  = "Adding method canceled."
	addMethodLabel   = "Add New Method"
	cancelLabel      = "Cancel"
	confirmLabel     = "Confirm"
	bankTransferText = "Bank Transfer"
)

func balanceNotice(balance int64) string {
	return fmt.Sprintf("Your current balance is: $%d", balance)
}

func insufficientNotice(balance int64) string {
	return fmt.Sprintf("You don't have sufficient balance. Your current balance is $%d.\n\n"+
		"Please enter an amount less than or equal to your balance or type \"cancel\" or \"0\" to cancel.", balance)
}

func shortBalanceNotice(balance int64) string {
	return fmt.Sprintf("You don't have sufficient balance. Your current balance is $%d.", balance)
}

func methodAddedNotice(kind account.MethodKind) string {
	return fmt.Sprintf("Method %s added successfully!", kind)
}

// flow carries everything that differs between the deposit and withdrawal sides.
type flow struct {
	name  string // deposit | withdrawal
	verb  string // deposit | withdraw
	title string // Deposit | Withdrawal
	list  account.MethodList

	// detailSuffix is inserted before the colon of detail prompts.
	detailSuffix string

	amount     account.State
	selectFrom account.State
	addType    account.State
	addDetails account.State
	confirm    account.State
}

var (
	depositFlow = flow{
		name:       "deposit",
		verb:       "deposit",
		title:      "Deposit",
		list:       account.DepositMethods,
		amount:     account.StateDepositAmount,
		selectFrom: account.StateSelectDepositMethod,
		addType:    account.StateAddDepositMethodType,
		addDetails: account.StateAddDepositMethodDetails,
		confirm:    account.StateConfirmDeposit,
	}
	withdrawalFlow = flow{
		name:         "withdrawal",
		verb:         "withdraw",
		title:        "Withdrawal",
		list:         account.WithdrawalMethods,
		detailSuffix: " for withdrawal",
		amount:       account.StateWithdrawAmount,
		selectFrom:   account.StateSelectWithdrawalMethod,
		addType:      account.StateAddWithdrawalMethodType,
		addDetails:   account.StateAddWithdrawalMethodDetails,
		confirm:      account.StateConfirmWithdrawal,
	}
)

func (f flow) methodToken(idx int) string { return fmt.Sprintf("%s_method_%d", f.name, idx) }
func (f flow) methodPrefix() string { return f.name + "_method_" }
func (f flow) addMethodToken() string { return "add_" + f.name + "_method" }
func (f flow) cancelAddToken() string { return "cancel_add_" + f.name + "_method" }
func (f flow) confirmToken() string { return "confirm_" + f.name }

func (f flow) typeToken(t account.MethodType) string {
	return "type_" + string(t) + "_" + f.name
}

func (f flow) cryptoToken(symbol string) string {
	return "crypto_" + symbol + "_" + f.name
}

func (f flow) canceledNotice() string { return f.title + " canceled." }

func (f flow) completedNotice(amount int64) string {
	return fmt.Sprintf("%s of $%d completed successfully!", f.title, amount)
}

func (f flow) amountText() string {
	return fmt.Sprintf("How much would you like to %s? ", f.verb) + cancelHint
}

func (f flow) selectText() string {
	return fmt.Sprintf("Select a %s method:", f.name)
}

func (f flow) detailText(kind account.MethodKind) string {
	var subject string
	switch kind.Type {
	case account.MethodBank:
		subject = "Please provide the bank name"
	case account.MethodPaypal:
		subject = "Please provide your Paypal email"
	default:
		subject = fmt.Sprintf("Please provide your %s address", kind.Symbol)
	}
	return subject + f.detailSuffix + ":" + cancelHint
}

func (f flow) confirmText(amount int64, method account.PaymentMethod) string {
	return fmt.Sprintf("Confirm the %s of $%d via %s.\n\n%s", f.name, amount, method.Description, confirmQuestion)
}
