// Package script запускает пользовательский Python-код в отдельном
// процессе.
//
// Каждый запуск получает изолированный временный каталог: туда
// сериализуется вход (input.json), туда же пишется сгенерированный
// driver-скрипт, оборачивающий тело пользовательской функции.
// Процесс стартует в собственной process group и убивается целиком
// (SIGKILL) по жёсткому wall-clock таймауту. Результат — последняя
// строка stdout, содержащая валидный JSON-объект; всё остальное в
// stdout считается пользовательским выводом и сохраняется как есть.
// Временный каталог удаляется на любом пути выхода.
package script
