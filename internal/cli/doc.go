// Package cli реализует инструмент командной строки Dirigent.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Dirigent API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления workflow и сессиями выполнения.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Dirigent API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	workflows, err := client.ListWorkflows()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: dirigent workflow list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - workflow: list, create, show, update, delete
//   - session: list, start, show, cancel, records
//
// Каждая группа создаётся через фабричную функцию (NewWorkflowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
