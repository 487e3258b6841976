package domain

import "errors"

var (
	// ErrMalformedHeader возвращается когда первая строка сигнала не распознана
	ErrMalformedHeader = errors.New("malformed signal header")

	// ErrMalformedField возвращается при нечисловом значении в строке сигнала
	ErrMalformedField = errors.New("malformed signal field")

	// ErrIncompleteIntent возвращается когда после парсинга не хватает обязательных полей
	ErrIncompleteIntent = errors.New("incomplete trade signal information")

	// ErrBalanceUnavailable возвращается когда биржа не вернула баланс актива
	ErrBalanceUnavailable = errors.New("balance unavailable")

	// ErrInsufficientBalance возвращается при недостаточном балансе
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOrderRejected возвращается когда биржа отклонила отдельный ордер
	ErrOrderRejected = errors.New("order rejected")

	// ErrExchangeAPI возвращается при ошибке API биржи
	ErrExchangeAPI = errors.New("exchange API error")
)
