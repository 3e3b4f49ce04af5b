package settlement

import "errors"

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrMerchantNotFound     = errors.New("merchant not found")
	ErrAdminNotFound        = errors.New("admin account not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadySettled       = errors.New("transaction already settled")
	ErrNoPendingTransaction = errors.New("no pending transaction for item")
)
