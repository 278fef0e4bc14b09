// Package provider содержит внешних исполнителей, к которым
// обращаются узлы workflow: HTTP-вызовы, SQL-запросы, prompt-сервис,
// AI-completion и broadcast-уведомления.
//
// Движок работает с ними через интерфейсы (CallExecutor, QueryExecutor,
// PromptExecutor, CompletionProvider, Broadcaster) и не знает деталей
// реализации. Ретраи и circuit breaking — забота самих провайдеров,
// движок не повторяет упавшие вызовы.
package provider
