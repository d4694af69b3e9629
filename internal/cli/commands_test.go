package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedDoc = `{
	// storefront
	"catalog": [
		{"id": "c1", "type": "course", "category": "course", "name": "Derecho de Familia", "status": "active", "price": 49},
		{"id": "e1", "type": "ebook", "category": "ebook", "name": "Guía de Divorcio", "status": "active", "price": 15},
		{"id": "s1", "type": "service", "category": "service", "name": "Consulta Civil", "status": "inactive", "price": 80},
	],
	"courses": [
		{"id": "c1", "title": "Derecho de Familia", "modules": [
			{"id": "m1", "lessons": [{"id": "l1"}, {"id": "l2"}]},
		]},
	],
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes args against db and fails the test on error.
func run(t *testing.T, db []string, args ...string) string {
	t.Helper()
	out, err := execute(t, append(args, db...)...)
	require.NoError(t, err, out)
	return out
}

// decodeData parses a JSON response and returns its data payload.
func decodeData(t *testing.T, out string) any {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	return resp.Data
}

func TestSeedAndCatalog(t *testing.T) {
	db := sqliteFlags(t)
	path := writeFile(t, "seed.jsonc", seedDoc)

	out := run(t, db, "seed", "--file", path)
	assert.Contains(t, out, "✓ catalog: 3 records (version 1)")
	assert.Contains(t, out, "✓ courses: 1 records (version 1)")

	out = run(t, db, "catalog")
	assert.Contains(t, out, "c1")
	assert.Contains(t, out, "e1")
	assert.NotContains(t, out, "s1", "inactive items are hidden")

	out = run(t, db, "catalog", "--category", "course", "--format", "json")
	items := decodeData(t, out).([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].(map[string]any)["id"])

	out = run(t, db, "catalog", "--q", "GUÍA", "--format", "json")
	items = decodeData(t, out).([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "e1", items[0].(map[string]any)["id"])
}

func TestSeed_SkipsExistingUnlessForced(t *testing.T) {
	db := sqliteFlags(t)
	path := writeFile(t, "seed.jsonc", seedDoc)
	run(t, db, "seed", "--file", path)

	out := run(t, db, "seed", "--file", path)
	assert.Contains(t, out, "- catalog: exists, skipped")
	assert.Contains(t, out, "- courses: exists, skipped")

	out = run(t, db, "seed", "--file", path, "--force")
	assert.Contains(t, out, "- catalog: 3 records, unchanged (version 1)")
	assert.NotContains(t, out, "✓ catalog")

	changed := strings.Replace(seedDoc, `"price": 49`, `"price": 59`, 1)
	out = run(t, db, "seed", "--file", writeFile(t, "seed.jsonc", changed), "--force", "--format", "json")
	written := decodeData(t, out).(map[string]any)["written"].([]any)
	require.Len(t, written, 2)
	catalog := written[0].(map[string]any)
	assert.Equal(t, "catalog", catalog["collection"])
	assert.Equal(t, float64(2), catalog["version"])
	assert.Nil(t, catalog["unchanged"])
	courses := written[1].(map[string]any)
	assert.Equal(t, true, courses["unchanged"])
	assert.Equal(t, float64(1), courses["version"])
}

func TestSeed_UnknownCollection(t *testing.T) {
	db := sqliteFlags(t)
	path := writeFile(t, "seed.json", `{"invoices": []}`)

	_, err := execute(t, append([]string{"seed", "--file", path}, db...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown collection "invoices"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSeed_InvalidRecords(t *testing.T) {
	db := sqliteFlags(t)
	path := writeFile(t, "seed.json", `{"orders": [{"customerName": "no id"}]}`)

	out, err := execute(t, append([]string{"seed", "--file", path}, db...)...)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E_DECODE]")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPutAndGet(t *testing.T) {
	db := sqliteFlags(t)
	path := writeFile(t, "orders.json", `[
		{"id": 7, "customerName": "Ana", "total": 49.5, "status": "pending"}, // numeric id
	]`)

	out := run(t, db, "put", "orders", "--file", path)
	assert.Contains(t, out, "✓ orders: 1 records (version 1)")

	out = run(t, db, "get", "orders", "--format", "json")
	data := decodeData(t, out).(map[string]any)
	assert.Equal(t, "orders", data["collection"])
	assert.Equal(t, float64(1), data["version"])
	records := data["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "7", records[0].(map[string]any)["id"], "ids are stored as strings")

	out = run(t, db, "get", "orders", "--key", "7")
	assert.Contains(t, out, `"customerName": "Ana"`)

	_, err := execute(t, append([]string{"get", "orders", "--key", "8"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPut_ExpectedVersion(t *testing.T) {
	db := sqliteFlags(t)
	path := writeFile(t, "users.json", `[{"id": "u1", "email": "a@example.com"}]`)

	run(t, db, "put", "users", "--file", path, "--expect", "0")

	out, err := execute(t, append([]string{"put", "users", "--file", path, "--expect", "0"}, db...)...)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E_CONFLICT]")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out = run(t, db, "put", "users", "--file", path, "--expect", "1")
	assert.Contains(t, out, "- users: 1 records, unchanged (version 1)")
}

func TestGet_NeverWritten(t *testing.T) {
	db := sqliteFlags(t)
	out := run(t, db, "get", "crm")
	assert.Equal(t, "[]\n", out)
}

func TestCollections(t *testing.T) {
	db := sqliteFlags(t)
	run(t, db, "seed", "--file", writeFile(t, "seed.jsonc", seedDoc))

	out := run(t, db, "collections", "--format", "json")
	infos := decodeData(t, out).([]any)
	require.Len(t, infos, 9)

	byName := map[string]map[string]any{}
	for _, i := range infos {
		m := i.(map[string]any)
		byName[m["name"].(string)] = m
	}
	assert.Equal(t, float64(3), byName["catalog"]["records"])
	assert.Equal(t, true, byName["catalog"]["exists"])
	assert.Equal(t, false, byName["users"]["exists"])
	assert.Equal(t, float64(0), byName["users"]["version"])

	out = run(t, db, "collections")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "course_progress")
}

func TestFilter(t *testing.T) {
	db := sqliteFlags(t)
	run(t, db, "seed", "--file", writeFile(t, "seed.jsonc", seedDoc))

	out := run(t, db, "filter", "catalog", "--status", "inactive", "--format", "json")
	items := decodeData(t, out).([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "s1", items[0].(map[string]any)["id"])

	out = run(t, db, "filter", "catalog", "--where", "type=ebook", "--where", "status=active")
	assert.Contains(t, out, "Guía de Divorcio")
	assert.NotContains(t, out, "Derecho")

	out = run(t, db, "filter", "users")
	assert.Equal(t, "No records.\n", out)

	_, err := execute(t, append([]string{"filter", "catalog", "--where", "novalue"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, append([]string{"filter", "invoices"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRegisterTwice(t *testing.T) {
	db := sqliteFlags(t)

	out := run(t, db, "register", "--name", "Ana", "--email", "ana@example.com", "--format", "json")
	first := decodeData(t, out).(map[string]any)
	assert.Equal(t, "inserted", first["outcome"])
	assert.Equal(t, true, first["crmCreated"])
	id := first["user"].(map[string]any)["id"].(string)
	assert.NotEmpty(t, id)

	out = run(t, db, "register", "--name", "Ana B", "--email", "ANA@example.com")
	assert.Contains(t, out, "already registered as "+id)

	out = run(t, db, "check")
	assert.Contains(t, out, "✓ No issues")
}

func TestRegister_Invalid(t *testing.T) {
	db := sqliteFlags(t)
	out, err := execute(t, append([]string{"register", "--name", "Ana", "--email", "not-an-email", "--format", "json"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeValidation, resp.Error.Code)
}

func TestSubmitAndImport(t *testing.T) {
	db := sqliteFlags(t)

	out := run(t, db, "seed-forms")
	assert.Contains(t, out, "✓ default forms installed")
	out = run(t, db, "seed-forms")
	assert.Contains(t, out, "- forms already present")

	out = run(t, db, "submit", "contacto",
		"--data", "nombre=Ana García", "--data", "email=ana@example.com", "--data", "mensaje=Hola")
	assert.Contains(t, out, "stored for form contacto")

	_, err := execute(t, append([]string{"submit", "contacto", "--data", "nombre=Ana"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, append([]string{"submit", "missing", "--data", "x=y"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, append([]string{"submit", "contacto", "--data", "=y"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out = run(t, db, "import-submissions", "--format", "json")
	res := decodeData(t, out).(map[string]any)
	assert.Equal(t, float64(1), res["inserted"])
	assert.Equal(t, float64(1), res["crmCreated"])

	out = run(t, db, "import-submissions")
	assert.Contains(t, out, "Imported 0, skipped 1")

	out = run(t, db, "filter", "users", "--q", "GARCÍA")
	assert.Contains(t, out, "Ana García")
}

func TestReconcileAndCheck(t *testing.T) {
	db := sqliteFlags(t)
	run(t, db, "put", "users", "--file", writeFile(t, "users.json", `[{"id": "u1", "name": "Ana"}]`))

	out, err := execute(t, append([]string{"check"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ missing_crm: users/u1")
	assert.Contains(t, out, "1 issue(s) found")

	out = run(t, db, "reconcile")
	assert.Contains(t, out, "Created 1 CRM rows")

	run(t, db, "check")
}

func TestCheck_JSONIssues(t *testing.T) {
	db := sqliteFlags(t)
	run(t, db, "put", "crm", "--file", writeFile(t, "crm.json", `[{"userId": "ghost"}]`))

	out, err := execute(t, append([]string{"check", "--format", "json"}, db...)...)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeIntegrity, resp.Error.Code)
	issues := resp.Error.Details.([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "orphan_crm", issues[0].(map[string]any)["kind"])
}

func TestCoursePurchaseAndProgress(t *testing.T) {
	db := sqliteFlags(t)
	run(t, db, "seed", "--file", writeFile(t, "seed.jsonc", seedDoc))

	out := run(t, db, "record-purchase", "--id", "pay-1", "--user", "u1", "--item", "c1", "--format", "json")
	res := decodeData(t, out).(map[string]any)
	assert.Equal(t, "inserted", res["outcome"])
	purchase := res["record"].(map[string]any)
	assert.Equal(t, float64(49), purchase["amount"])
	assert.Equal(t, "Derecho de Familia", purchase["itemName"])

	out = run(t, db, "record-purchase", "--id", "pay-1", "--user", "u1", "--item", "c1")
	assert.Contains(t, out, "skipped")

	_, err := execute(t, append([]string{"record-purchase", "--user", "u1", "--item", "nope"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out = run(t, db, "complete-lesson", "--user", "u1", "--course", "c1", "--lesson", "l1")
	assert.Contains(t, out, "1 lessons completed, 50%")

	out = run(t, db, "progress", "--user", "u1")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "50%")

	out = run(t, db, "progress", "--user", "u2")
	assert.Equal(t, "No courses in progress.\n", out)
}

func TestOrdersAndSales(t *testing.T) {
	db := sqliteFlags(t)

	run(t, db, "record-order", "--id", "o1", "--customer", "Ana", "--total", "100")
	run(t, db, "record-order", "--id", "o2", "--customer", "Luis", "--total", "50", "--status", "cancelled")
	out := run(t, db, "record-order", "--id", "o1", "--customer", "Ana", "--total", "100")
	assert.Contains(t, out, "✓ order o1 skipped")

	_, err := execute(t, append([]string{"record-order", "--total", "10", "--status", "lost"}, db...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out = run(t, db, "sales", "--format", "json")
	report := decodeData(t, out).(map[string]any)
	orders := report["orders"].(map[string]any)
	assert.Equal(t, float64(100), orders["totalRevenue"])
	assert.Equal(t, float64(2), orders["totalOrders"])
	assert.Equal(t, float64(50), orders["averageTicket"])
	byMonth := report["byMonth"].([]any)
	require.Len(t, byMonth, 1)
	assert.Equal(t, float64(1), byMonth[0].(map[string]any)["orders"])

	out = run(t, db, "sales")
	assert.True(t, strings.HasPrefix(out, "Revenue: 100.00  Orders: 2  Average ticket: 50.00\n"), out)
	assert.Contains(t, out, "cancelled")
}
