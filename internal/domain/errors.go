package domain

import "errors"

// ошибки, общие для хранилищ и сервисов
var (
	ErrInsufficientFunds = errors.New("недостаточно средств")
	ErrInvalidAmount     = errors.New("неверная сумма")
)
