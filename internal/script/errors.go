package script

import "errors"

// Ошибки запуска скриптов.
var (
	// ErrSetup — не удалось подготовить окружение запуска
	// (временный каталог, input.json, установка зависимостей).
	ErrSetup = errors.New("script setup failed")

	// ErrScript — пользовательский код завершился с ошибкой.
	ErrScript = errors.New("script failed")

	// ErrScriptTimeout — превышен wall-clock таймаут,
	// process group убита SIGKILL.
	ErrScriptTimeout = errors.New("script timeout")

	// ErrInvalidResult — stdout не содержит строки с JSON-объектом результата.
	ErrInvalidResult = errors.New("invalid script result")
)
