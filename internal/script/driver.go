package script

import (
	"fmt"
	"strings"
)

// driverTemplate — каркас скрипта вокруг пользовательского кода.
//
// Вход читается из input.json рядом со скриптом, результат печатается
// последней строкой stdout как JSON-объект. Не-dict результат
// оборачивается в {"result": ...}. Лимит памяти ставится best-effort:
// на платформах без resource модуль просто недоступен.
const driverTemplate = `import json
import sys

%s

with open("input.json") as __f:
    __input = json.load(__f)

def __dirigent_main(input):
%s

__result = __dirigent_main(__input)
if not isinstance(__result, dict):
    __result = {"result": __result}
sys.stdout.flush()
print(json.dumps(__result))
`

const rlimitTemplate = `try:
    import resource
    __limit = %d * 1024 * 1024
    resource.setrlimit(resource.RLIMIT_AS, (__limit, __limit))
except Exception:
    pass`

// buildDriver собирает driver-скрипт вокруг тела пользовательской функции.
func buildDriver(code string, memoryLimitMB int) string {
	rlimit := ""
	if memoryLimitMB > 0 {
		rlimit = fmt.Sprintf(rlimitTemplate, memoryLimitMB)
	}
	return fmt.Sprintf(driverTemplate, rlimit, indent(code, "    "))
}

// indent добавляет префикс к каждой строке.
func indent(code string, prefix string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
