// Package engine — демон выполнения сессий.
//
// Engine связывает очередь и хранилище с session.Manager:
// получает события session.pending из RabbitMQ, периодически
// опрашивает БД на случай пропущенных событий и выполняет каждую
// сессию через Runner. Очередь — оптимизация задержки, источником
// истины остаётся хранилище: сессия, о которой событие потерялось,
// будет подхвачена polling'ом.
package engine
