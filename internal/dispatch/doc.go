// Package dispatch выполняет отдельные узлы workflow.
//
// Dispatcher для каждого узла:
//   - собирает входные данные (явный mapping с reference-токенами
//     $node.<id> или автосбор по прямым предшественникам),
//   - находит обработчик по типу узла в Registry,
//   - пишет запись выполнения (running → completed/failed) и
//     результат узла в хранилище независимо от исхода,
//   - возвращает выход узла в рабочий набор сессии.
//
// Набор типов узлов закрыт; неизвестный тип — типизированная ошибка
// с перечислением поддерживаемых. Ошибки персистентности вокруг
// бухгалтерии логируются и не роняют узел.
package dispatch
