package provider

import "errors"

// Ошибки провайдеров.
var (
	// ErrCall — ошибка HTTP-вызова (транспорт, невалидная конфигурация).
	ErrCall = errors.New("call failed")

	// ErrQuery — ошибка выполнения SQL-запроса.
	ErrQuery = errors.New("query failed")

	// ErrBindParam — именованный параметр запроса не найден во входных данных.
	ErrBindParam = errors.New("bind parameter")

	// ErrPrompt — ошибка выполнения prompt-шаблона.
	ErrPrompt = errors.New("prompt execution failed")

	// ErrCompletion — ошибка AI-completion.
	ErrCompletion = errors.New("completion failed")
)
