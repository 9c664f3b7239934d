package model

import "errors"

// Rejection - отказ по бизнес-правилу. ClientMessage можно показывать клиенту,
// SystemMessage остается во внутренних логах и в system_reason записи.
// Unprocessable=true означает корректный по форме, но отклоненный политикой запрос (422),
// false - некорректные входные данные (400).
type Rejection struct {
	Code          string
	ClientMessage string
	SystemMessage string
	Unprocessable bool
}

func (r *Rejection) Error() string {
	return r.SystemMessage
}

func reject(code, client, system string, unprocessable bool) *Rejection {
	return &Rejection{Code: code, ClientMessage: client, SystemMessage: system, Unprocessable: unprocessable}
}

const (
	msgInvalidData   = "Invalid transaction data, transaction rejected"
	msgInsufficient  = "Insufficient balance, transaction rejected"
	msgNotAllowed    = "Transaction not allowed"
	msgAmountRange   = "Transaction amount is outside the allowed range, transaction rejected"
	msgDailyLimit    = "Daily limit exceeded, transaction rejected"
	msgAccountStatus = "Account is not active, transaction rejected"
)

// Отказы валидатора. Каждая проверка имеет собственный вариант.
var (
	RejectInvalidType                  = reject("INVALID_TYPE", msgInvalidData, "Invalid transaction data(transactionType)", false)
	RejectInvalidAmount                = reject("INVALID_AMOUNT", msgInvalidData, "Invalid transaction data(amount)", false)
	RejectTransferAmountRange          = reject("TRANSFER_AMOUNT_RANGE", msgAmountRange, "Transfer amount outside the configured min/max", true)
	RejectDepositAmountRange           = reject("DEPOSIT_AMOUNT_RANGE", msgAmountRange, "Deposit amount outside the configured min/max", true)
	RejectWithdrawalAmountRange        = reject("WITHDRAWAL_AMOUNT_RANGE", msgAmountRange, "Withdrawal amount outside the configured min/max", true)
	RejectDescriptionTooLong           = reject("DESCRIPTION_TOO_LONG", msgInvalidData, "Invalid transaction data(description)", false)
	RejectMissingDestination           = reject("MISSING_DESTINATION", msgInvalidData, "Invalid transaction data(toAccount missing)", false)
	RejectUnexpectedDestination        = reject("UNEXPECTED_DESTINATION", msgInvalidData, "Invalid transaction data(toAccount on non-transfer)", false)
	RejectSourceNotFound               = reject("SOURCE_NOT_FOUND", msgInvalidData, "Invalid transaction data(accountNumber)", false)
	RejectNotAccountHolder             = reject("NOT_ACCOUNT_HOLDER", "Invalid account number", "Acting user is not the holder of the source account", false)
	RejectDestinationNotFound          = reject("DESTINATION_NOT_FOUND", msgInvalidData, "Invalid transaction data(toAccount)", false)
	RejectSameAccount                  = reject("SAME_ACCOUNT", "Cannot transfer to the same account", "Source and destination account numbers are equal", true)
	RejectInsufficientBalance          = reject("INSUFFICIENT_BALANCE", msgInsufficient, "Insufficient balance", true)
	RejectDestinationMaxBalance        = reject("DESTINATION_MAX_BALANCE", msgNotAllowed, "Destination account balance can't exceed the maximum allowed balance", true)
	RejectMaxBalance                   = reject("MAX_BALANCE", "Your account balance has reached the maximum limit, transaction rejected", "Account balance can't exceed the maximum allowed balance", true)
	RejectSourceInactive               = reject("SOURCE_INACTIVE", msgAccountStatus, "Source account status is not Active", true)
	RejectDestinationInactive          = reject("DESTINATION_INACTIVE", msgNotAllowed, "Destination account status is not Active", true)
	RejectTransferDailyLimit           = reject("TRANSFER_DAILY_LIMIT", msgDailyLimit, "Source daily transfer total would exceed the transfer daily limit", true)
	RejectDestinationDepositDailyLimit = reject("DESTINATION_DEPOSIT_DAILY_LIMIT", msgNotAllowed, "Destination daily deposit total would exceed the deposit daily limit", true)
	RejectWithdrawalDailyLimit         = reject("WITHDRAWAL_DAILY_LIMIT", msgDailyLimit, "Daily withdrawal total would exceed the withdrawal daily limit", true)
	RejectDepositDailyLimit            = reject("DEPOSIT_DAILY_LIMIT", msgDailyLimit, "Daily deposit total would exceed the deposit daily limit", true)
	RejectSameHolder                   = reject("SAME_HOLDER", msgNotAllowed, "Source and destination accounts belong to the same holder", true)
)

// Отказы леджера: условное обновление не совпало ни с одной строкой.
var (
	ErrAccountNotFound    = reject("LEDGER_NOT_FOUND", msgInvalidData, "Account not found", false)
	ErrInsufficientFunds  = reject("LEDGER_INSUFFICIENT_FUNDS", msgInsufficient, "Insufficient funds at mutation time", true)
	ErrMaxBalanceExceeded = reject("LEDGER_MAX_BALANCE", msgNotAllowed, "Deposit would exceed the maximum allowed balance", true)
	ErrDailyLimitExceeded = reject("LEDGER_DAILY_LIMIT", msgDailyLimit, "Daily limit reached at mutation time", true)
	ErrAccountNotActive   = reject("LEDGER_NOT_ACTIVE", msgAccountStatus, "Account status is not Active at mutation time", true)
	ErrConcurrentModified = reject("LEDGER_CONFLICT", "Transaction could not be completed, please retry", "Conditional update matched no row for an unclassified reason", true)
)

// Отказы при создании счета
var (
	RejectInvalidAccountType   = reject("ACCOUNT_TYPE", "Invalid account type", "Account type must be Savings or Checking", false)
	RejectInitialBalanceRange  = reject("ACCOUNT_INITIAL_BALANCE", "Initial balance is outside the allowed range", "Initial balance outside MIN_BALANCE..MAX_BALANCE", true)
	RejectMissingAccountHolder = reject("ACCOUNT_HOLDER_REQUIRED", "Account holder ID and creator information are required", "accountHolderId or createdBy is empty", false)
	RejectInvalidAccountStatus = reject("ACCOUNT_STATUS", "Invalid account status", "Account status must be Active, Inactive or Closed", false)
)

// Сбои, которые не являются отказами по бизнес-правилам.
var (
	// ErrReconciliationRequired - средства списаны, но не зачислены и не возвращены
	ErrReconciliationRequired = errors.New("reconciliation required: funds withdrawn but neither delivered nor returned")
	// ErrAccountGenerationFailed - исчерпаны попытки генерации номера счета
	ErrAccountGenerationFailed = errors.New("account number generation failed after reaching max attempts")
)

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRejected
	OutcomeFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRejected:
		return "rejected"
	default:
		return "fault"
	}
}

// Classify сводит ошибку любого слоя к одному из трех исходов
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		return OutcomeRejected
	}
	return OutcomeFault
}

// AsRejection извлекает отказ из цепочки ошибок
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
