package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"kr.dev/diff"
	"tfm.run/cmd/tfm/cline"
	"tfm.run/fetch/fetchtest"
)

func TestMain(m *testing.M) {
	cline.TestMain(m, main)
}

// fakeASC serves a small App Store Connect account: one app with one beta
// group of three testers, one of whom was active, and a fourth tester in
// no group.
type fakeASC struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeASC) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
}

func (f *fakeASC) deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var dd []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, "DELETE ") {
			dd = append(dd, c)
		}
	}
	return dd
}

func tester(id, first, last string) map[string]any {
	return map[string]any{
		"type": "betaTesters",
		"id":   id,
		"attributes": map[string]any{
			"firstName": first,
			"lastName":  last,
			"state":     "INSTALLED",
		},
	}
}

func page(data ...any) map[string]any {
	if data == nil {
		data = []any{}
	}
	return map[string]any{"data": data, "links": map[string]any{}}
}

func (f *fakeASC) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		fetchtest.WriteJSON(w, 401, map[string]any{"errors": []any{map[string]any{
			"status": "401",
			"code":   "NOT_AUTHORIZED",
			"detail": "Missing bearer token.",
		}}})
		return
	}
	var (
		t1 = tester("t1", "Ada", "Active")
		t2 = tester("t2", "Bob", "Idle")
		t3 = tester("t3", "Cy", "Idle")
		t4 = tester("t4", "Dee", "Loose")
	)
	switch {
	case fetchtest.Want(r, "GET", "/v1/apps"):
		fetchtest.WriteJSON(w, 200, page(map[string]any{
			"type":       "apps",
			"id":         "app1",
			"attributes": map[string]any{"name": "Alpha", "bundleId": "com.example.alpha"},
		}))
	case fetchtest.Want(r, "GET", "/v1/apps/app1/betaGroups"):
		fetchtest.WriteJSON(w, 200, page(map[string]any{
			"type":       "betaGroups",
			"id":         "g1",
			"attributes": map[string]any{"name": "Crew"},
		}))
	case fetchtest.Want(r, "GET", "/v1/betaGroups/g1"):
		fetchtest.WriteJSON(w, 200, map[string]any{"data": map[string]any{
			"type":          "betaGroups",
			"id":            "g1",
			"attributes":    map[string]any{"name": "Crew"},
			"relationships": map[string]any{"app": map[string]any{"data": map[string]any{"type": "apps", "id": "app1"}}},
		}})
	case fetchtest.Want(r, "GET", "/v1/betaGroups/g1/betaTesters"):
		fetchtest.WriteJSON(w, 200, page(t1, t2, t3))
	case fetchtest.Want(r, "GET", "/v1/betaGroups/g1/metrics/betaTesterUsages"):
		fetchtest.WriteJSON(w, 200, page(map[string]any{
			"dataPoints": []any{map[string]any{"values": map[string]any{"sessionCount": 3}}},
			"dimensions": map[string]any{"betaTesters": map[string]any{"data": map[string]any{"type": "betaTesters", "id": "t1"}}},
		}))
	case fetchtest.Want(r, "GET", "/v1/betaTesters"):
		fetchtest.WriteJSON(w, 200, page(t1, t2, t3, t4))
	case r.Method == "DELETE":
		w.WriteHeader(204)
	default:
		fetchtest.WriteJSON(w, 404, map[string]any{"errors": []any{map[string]any{
			"status": "404",
			"code":   "NOT_FOUND",
			"detail": "The specified resource does not exist.",
		}}})
	}
}

// testtfm returns a harness whose configuration directory is empty and
// whose App Store Connect API is served by h.
func testtfm(t *testing.T, h http.Handler) (tt *cline.Data, configDir, keyPath string) {
	t.Helper()
	home := t.TempDir()
	configDir = filepath.Join(home, "tfm")
	keyPath = filepath.Join(home, "AuthKey_KEY123.p8")

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0600); err != nil {
		t.Fatal(err)
	}

	tt = cline.Test(t)
	tt.Setenv("HOME", home)
	tt.Setenv("TFM_CONFIG_DIR", configDir)
	tt.Setenv("ASC_BASE_URL", fetchtest.BaseURL(fetchtest.NewServer(t, h.ServeHTTP)))
	tt.Setenv("NO_COLOR", "1")
	tt.Unsetenv("ASC_DEBUG")
	tt.Unsetenv("TFM_DEBUG")
	return tt, configDir, keyPath
}

func loggedIn(t *testing.T, h http.Handler) *cline.Data {
	t.Helper()
	tt, _, keyPath := testtfm(t, h)
	tt.Run("login", "--issuer-id", "issuer", "--key-id", "KEY123", "--private-key-path", keyPath, "--skip-verification")
	return tt
}

func readJSON(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestUsage(t *testing.T) {
	tt, _, _ := testtfm(t, &fakeASC{})
	tt.RunStatus(2)
	tt.GrepStderr(`^Usage:`, "missing usage")
	tt.RunStatus(2, "bogus")
	tt.GrepStderr(`remove-ungrouped`, "usage does not list commands")
}

func TestVersion(t *testing.T) {
	tt, _, _ := testtfm(t, &fakeASC{})
	tt.Run("version")
	tt.GrepStdout(`^\d+\.\d+\.\d+$`, "unexpected version format")
	tt.RunStatus(2, "version", "extra")
	tt.GrepStderr(`^tfm: version does not accept arguments`, "unexpected error")
}

func TestHelp(t *testing.T) {
	tt, _, _ := testtfm(t, &fakeASC{})
	tt.Run("help", "purge")
	tt.GrepStdout(`tfm purge \[--app-id=<id>\]`, "missing purge usage")
	tt.Run("help", "help")
	tt.GrepStdout(`^Usage:`, "missing usage")
	tt.Run("purge", "-h")
	tt.GrepStdout(`--removal-scope`, "missing purge usage")
	tt.RunFail("help", "nope")
	tt.GrepStderr(`^tfm: unknown help topic "nope"`, "unexpected error")
}

func TestLogin(t *testing.T) {
	tt, configDir, keyPath := testtfm(t, &fakeASC{})
	tt.Run("login", "--issuer-id", " issuer ", "--key-id", "KEY123", "--private-key-path", keyPath)
	tt.GrepStdout(`^Verification succeeded\.$`, "verification not reported")
	tt.GrepStdout(`^Login succeeded\. Saved credentials to .*credentials\.json\.$`, "login not reported")

	got := readJSON(t, filepath.Join(configDir, "credentials.json"))
	diff.Test(t, t.Errorf, got, map[string]any{
		"issuerID":       "issuer",
		"keyID":          "KEY123",
		"privateKeyPath": keyPath,
	})
}

func TestLoginVerificationFailed(t *testing.T) {
	tt, configDir, keyPath := testtfm(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetchtest.WriteJSON(w, 401, map[string]any{"errors": []any{map[string]any{
			"status": "401",
			"code":   "NOT_AUTHORIZED",
			"detail": "Provide a properly configured and signed bearer token",
		}}})
	}))
	tt.RunFail("login", "--issuer-id", "issuer", "--key-id", "KEY123", "--private-key-path", keyPath)
	tt.GrepStderr(`^tfm: Verification failed: Request failed with status code 401\. Details: NOT_AUTHORIZED: Provide a properly configured and signed bearer token\.$`, "unexpected error")
	if _, err := os.Stat(filepath.Join(configDir, "credentials.json")); !os.IsNotExist(err) {
		t.Errorf("credentials saved after failed verification: %v", err)
	}
}

func TestLoginMissingValues(t *testing.T) {
	tt, _, keyPath := testtfm(t, &fakeASC{})
	tt.RunFail("login", "--skip-verification")
	tt.GrepStderr(`^tfm: Missing issuer ID\. Provide --issuer-id or run 'tfm config' to set a default\.$`, "unexpected error")
	tt.RunFail("login", "--skip-verification", "--issuer-id", "issuer")
	tt.GrepStderr(`^tfm: Missing key ID\. Provide --key-id`, "unexpected error")
	tt.RunFail("login", "--skip-verification", "--issuer-id", "issuer", "--key-id", "KEY123")
	tt.GrepStderr(`^tfm: Missing private key path\. Provide --private-key-path`, "unexpected error")
	tt.RunFail("login", "--skip-verification", "--issuer-id", "issuer", "--key-id", "KEY123", "--private-key-path", keyPath+".missing")
	tt.GrepStderr(`^tfm: Private key not found at path: `, "unexpected error")
}

func TestLoginFromConfig(t *testing.T) {
	tt, configDir, keyPath := testtfm(t, &fakeASC{})
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatal(err)
	}
	cfg := `{
	// edited by hand
	"issuerID": "issuer",
	"keyID": "KEY123",
	"privateKeyPath": "` + keyPath + `",
}`
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}
	tt.Run("login", "--skip-verification", "--key-id", "OTHER")
	tt.GrepStdoutNot(`Verification succeeded`, "verification not skipped")

	got := readJSON(t, filepath.Join(configDir, "credentials.json"))
	diff.Test(t, t.Errorf, got, map[string]any{
		"issuerID":       "issuer",
		"keyID":          "OTHER",
		"privateKeyPath": keyPath,
	})
}

func TestConfig(t *testing.T) {
	tt, configDir, keyPath := testtfm(t, &fakeASC{})
	tt.SetStdin("issuer\nKEY123\n/no/such/key.p8\n" + keyPath + "\n")
	tt.Run("config")
	tt.GrepStdout(`^Configure default values used by the login command\.`, "missing introduction")
	tt.GrepStdout(`No file found at /no/such/key\.p8\. Please provide a valid path\.`, "missing complaint")
	tt.GrepStdout(`Saved configuration to .*config\.json\.$`, "save not reported")

	got := readJSON(t, filepath.Join(configDir, "config.json"))
	diff.Test(t, t.Errorf, got, map[string]any{
		"issuerID":       "issuer",
		"keyID":          "KEY123",
		"privateKeyPath": keyPath,
	})

	// Empty answers and end of input keep the current values.
	tt.SetStdin("\nKEY456\n")
	tt.Run("config")
	tt.GrepStdout(`Issuer ID \[issuer\]: `, "current value not shown")
	got = readJSON(t, filepath.Join(configDir, "config.json"))
	diff.Test(t, t.Errorf, got, map[string]any{
		"issuerID":       "issuer",
		"keyID":          "KEY456",
		"privateKeyPath": keyPath,
	})
}

func TestNoCredentials(t *testing.T) {
	f := &fakeASC{}
	tt, _, _ := testtfm(t, f)
	tt.RunFail("purge", "--app-id", "app1", "--beta-group-id", "g1")
	tt.GrepStderr(`^tfm: No saved credentials\. Run 'tfm login' before purging testers\.$`, "unexpected error")
	diff.Test(t, t.Errorf, f.calls, []string(nil))
}

func TestPurgeDryRun(t *testing.T) {
	f := &fakeASC{}
	tt := loggedIn(t, f)
	tt.Run("purge", "--app-id", "app1", "--beta-group-id", "g1", "--dry-run")
	tt.GrepStdout(`^Found 2 inactive tester\(s\) with no sessions in the last 30 days:$`, "missing header")
	tt.GrepStdout(`^ - Bob Idle$`, "missing tester")
	tt.GrepStdout(`^ - Cy Idle$`, "missing tester")
	tt.GrepStdoutNot(`Ada`, "active tester listed")
	tt.GrepStdout(`^ - Total testers: 3$`, "missing summary")
	tt.GrepStdout(`^Dry run: no testers were removed\.$`, "missing summary")
	diff.Test(t, t.Errorf, f.deletes(), []string(nil))
}

func TestPurge(t *testing.T) {
	f := &fakeASC{}
	tt := loggedIn(t, f)
	tt.Run("purge", "--app-id", "app1", "--beta-group-id", "g1", "--period", "7d")
	tt.GrepStdout(`in the last 7 days:$`, "window not used")
	tt.GrepStdout(`^Removed 2 tester\(s\) from TestFlight\.$`, "removal not reported")
	diff.Test(t, t.Errorf, f.deletes(), []string{
		"DELETE /v1/betaTesters/t2",
		"DELETE /v1/betaTesters/t3",
	})
}

func TestPurgeGroupOnly(t *testing.T) {
	f := &fakeASC{}
	tt := loggedIn(t, f)
	outPath := filepath.Join(t.TempDir(), "reports", "inactive.csv")
	tt.Run("purge", "--app-id", "app1", "--beta-group-id", "g1",
		"--removal-scope", "group-only",
		"--output-path", outPath, "--output-format", "csv")
	tt.GrepStdout(`^Wrote 2 inactive tester\(s\) to .*inactive\.csv\.$`, "write not reported")
	tt.GrepStdoutNot(`^ - Bob`, "testers listed despite output file")
	tt.GrepStdout(`^Removed 2 tester\(s\) from beta group g1\.$`, "removal not reported")
	diff.Test(t, t.Errorf, f.deletes(), []string{
		"DELETE /v1/betaGroups/g1/relationships/betaTesters",
	})

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, string(data), ""+
		"tester_id,first_name,last_name,email,state\n"+
		"t2,Bob,Idle,,INSTALLED\n"+
		"t3,Cy,Idle,,INSTALLED\n")
}

func TestPurgeAPIError(t *testing.T) {
	tt := loggedIn(t, &fakeASC{})
	tt.RunFail("purge", "--app-id", "app1", "--beta-group-id", "g9")
	tt.GrepStderr(`^tfm: API request failed: request failed with status code 404: NOT_FOUND: The specified resource does not exist\.$`, "unexpected error")
	tt.GrepStderrNot(`asc: `, "internal context on the error line")

	tt.RunFail("-v", "purge", "--app-id", "app1", "--beta-group-id", "g9")
	tt.GrepStderr(`^api: asc: .*g9: request failed with status code 404`, "full error not logged with -v")
}

func TestPurgeBadFlags(t *testing.T) {
	tt := loggedIn(t, &fakeASC{})
	tt.RunStatus(2, "purge", "--period", "5d")
	tt.GrepStderr(`^tfm: invalid value "5d" for flag -period`, "unexpected error")
	tt.GrepStderr(`^\ttfm purge`, "missing purge usage")
	tt.RunStatus(2, "purge", "--removal-scope", "everywhere")
	tt.GrepStderr(`^tfm: invalid value "everywhere" for flag -removal-scope`, "unexpected error")
	tt.RunStatus(2, "purge", "stray")
	tt.GrepStderr(`^tfm: unexpected arguments: \["stray"\]$`, "unexpected error")
}

func TestRemoveUngroupedInteractive(t *testing.T) {
	f := &fakeASC{}
	tt := loggedIn(t, f)

	// The only app is chosen without asking. Accept the dry run default
	// and decline the output file.
	tt.SetStdin("\n\n")
	tt.Run("remove-ungrouped")
	tt.GrepStdout(`Found 1 ungrouped tester\(s\) not assigned to any beta group:$`, "missing header")
	tt.GrepStdout(`^ - Dee Loose$`, "missing tester")
	tt.GrepStdout(`^ - Ungrouped testers: 1$`, "missing summary")
	tt.GrepStdoutNot(`Enter choice`, "single app not chosen automatically")
	diff.Test(t, t.Errorf, f.deletes(), []string(nil))

	// No dry run, no file, then confirm.
	tt.SetStdin("n\nn\ny\n")
	tt.Run("remove-ungrouped", "-i")
	tt.GrepStdout(`Proceed with removal\? \(y/N\): Removed 1 ungrouped tester\(s\) from app app1\.$`, "removal not reported")
	diff.Test(t, t.Errorf, f.deletes(), []string{
		"DELETE /v1/apps/app1/relationships/betaTesters",
	})
}

func TestRemoveUngroupedDeclined(t *testing.T) {
	f := &fakeASC{}
	tt := loggedIn(t, f)
	tt.SetStdin("n\nn\n")
	tt.Run("remove-ungrouped", "--app-id", "app1", "--interactive")
	tt.GrepStdout(`^Dry run: no testers were removed\.$`, "declined removal not treated as dry run")
	diff.Test(t, t.Errorf, f.deletes(), []string(nil))
}
