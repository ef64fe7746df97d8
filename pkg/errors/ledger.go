package errors

// Ledger error codes
const (
	// LedgerErrInsufficientFunds indicates a withdrawal exceeding the available balance
	LedgerErrInsufficientFunds = "LEDGER_INSUFFICIENT_FUNDS"
	// LedgerErrAccountLocked indicates a mutating operation on a locked account
	LedgerErrAccountLocked = "LEDGER_ACCOUNT_LOCKED"
	// LedgerErrTxNotFound indicates a dispute-family reference to an unknown transaction
	LedgerErrTxNotFound = "LEDGER_TX_NOT_FOUND"
	// LedgerErrInvalidAmount indicates a transaction carrying an unusable amount
	LedgerErrInvalidAmount = "LEDGER_INVALID_AMOUNT"
	// LedgerErrInvalidType indicates an unrecognized transaction type
	LedgerErrInvalidType = "LEDGER_INVALID_TYPE"
	// LedgerErrPersistFailed indicates the account write-back failed
	LedgerErrPersistFailed = "LEDGER_PERSIST_FAILED"
)

// Ledger domain name
const LedgerDomain = "ledger"

// Ledger operations
const (
	OpProcess       = "Process"
	OpLoadAccount   = "LoadAccount"
	OpStoreAccount  = "StoreAccount"
	OpLookupTx      = "LookupTx"
	OpDrainAccounts = "DrainAccounts"
)

// NewLedgerError creates a new ledger error
func NewLedgerError(code string, message string, err error) error {
	return &Error{
		Domain:   LedgerDomain,
		Code:     code,
		Message:  message,
		Original: err,
	}
}

// LedgerErrorf creates a new ledger error with formatted message
func LedgerErrorf(code string, format string, args ...interface{}) error {
	return &Error{
		Domain:  LedgerDomain,
		Code:    code,
		Message: Sprintf(format, args...),
	}
}

// LedgerWrap wraps an error with ledger domain
func LedgerWrap(err error, operation string, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Domain:    LedgerDomain,
		Operation: operation,
		Message:   message,
		Original:  err,
	}
}

// IsLedgerError checks if an error is a ledger error with the given code
func IsLedgerError(err error, code string) bool {
	var domainErr *Error
	if As(err, &domainErr) {
		return domainErr.Domain == LedgerDomain && domainErr.Code == code
	}
	return false
}
