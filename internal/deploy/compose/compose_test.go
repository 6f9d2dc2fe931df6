package compose

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const validCompose = `
services:
  app:
    build:
      context: .
      args:
        - DEV=true
    ports:
      - "8000:8000"
    volumes:
      - ./app:/app
      - dev-static-data:/vol/web
    command: sh -c "wait_for_db && migrate && runserver 0.0.0.0:8000"
    environment:
      - DB_HOST=db
      - DB_NAME=devdb
      - DB_USER=devuser
      - DB_PASS=changeme
    depends_on:
      - db
  db:
    image: postgres:13-alpine
    volumes:
      - dev-db-data:/var/lib/postgresql/data
    environment:
      POSTGRES_DB: devdb
      POSTGRES_USER: devuser
      POSTGRES_PASSWORD: changeme
volumes:
  dev-db-data:
  dev-static-data:
`

func mustParse(t *testing.T, content string) *File {
	t.Helper()
	f, err := Parse([]byte(content))
	if err != nil {
		t.Fatalf("failed to parse compose file: %v", err)
	}
	return f
}

func findingsWithRule(findings []Finding, rule string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestParse_ShortAndLongForms(t *testing.T) {
	f := mustParse(t, validCompose)

	app := f.Services["app"]
	if app.Build == nil || app.Build.Context != "." || app.Build.Args["DEV"] != "true" {
		t.Errorf("unexpected build: %+v", app.Build)
	}
	if app.Environment["DB_PASS"] != "changeme" {
		t.Errorf("expected list environment to be parsed, got %v", app.Environment)
	}
	if len(app.DependsOn) != 1 || app.DependsOn[0] != "db" {
		t.Errorf("unexpected depends_on: %v", app.DependsOn)
	}
	if !strings.Contains(app.Command, "runserver 0.0.0.0:8000") {
		t.Errorf("unexpected command: %q", app.Command)
	}

	db := f.Services["db"]
	if db.Image != "postgres:13-alpine" {
		t.Errorf("unexpected image: %s", db.Image)
	}
	if db.Environment["POSTGRES_USER"] != "devuser" {
		t.Errorf("expected map environment to be parsed, got %v", db.Environment)
	}
	if _, ok := f.Volumes["dev-db-data"]; !ok {
		t.Error("expected top-level volume dev-db-data")
	}
}

func TestParse_LongSyntax(t *testing.T) {
	f := mustParse(t, `
services:
  web:
    build: ./web
    command: ["serve", "--addr", "0.0.0.0:80"]
    ports:
      - target: 80
        published: 8080
        host_ip: 127.0.0.1
    volumes:
      - type: volume
        source: data
        target: /data
        read_only: true
    depends_on:
      cache:
        condition: service_started
`)
	web := f.Services["web"]
	if web.Build.Context != "./web" {
		t.Errorf("expected string build context, got %+v", web.Build)
	}
	if web.Command != "serve --addr 0.0.0.0:80" {
		t.Errorf("unexpected command %q", web.Command)
	}
	if len(web.Ports) != 1 || web.Ports[0] != "127.0.0.1:8080:80" {
		t.Errorf("unexpected ports %v", web.Ports)
	}
	if len(web.Volumes) != 1 || web.Volumes[0] != "data:/data:ro" {
		t.Errorf("unexpected volumes %v", web.Volumes)
	}
	if len(web.DependsOn) != 1 || web.DependsOn[0] != "cache" {
		t.Errorf("unexpected depends_on %v", web.DependsOn)
	}
}

func TestParse_Errors(t *testing.T) {
	for name, content := range map[string]string{
		"no services":   "volumes:\n  data:\n",
		"bad yaml":      "services: [\n",
		"bad env shape": "services:\n  app:\n    environment: 3\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidate_ValidFile(t *testing.T) {
	findings := mustParse(t, validCompose).Validate(DefaultRules())
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %v", findings)
	}
}

func TestValidate_CredentialMismatch(t *testing.T) {
	content := strings.Replace(validCompose, "POSTGRES_PASSWORD: changeme", "POSTGRES_PASSWORD: other", 1)
	content = strings.Replace(content, "- DB_HOST=db", "- DB_HOST=localhost", 1)

	findings := mustParse(t, content).Validate(DefaultRules())

	creds := findingsWithRule(findings, RuleCredentials)
	if len(creds) != 1 || !strings.Contains(creds[0].Message, "DB_PASS") {
		t.Errorf("expected one DB_PASS credential finding, got %v", creds)
	}
	if len(findingsWithRule(findings, RuleDBHost)) != 1 {
		t.Errorf("expected db-host finding, got %v", findings)
	}
}

func TestValidate_MissingCredentialAndService(t *testing.T) {
	content := strings.Replace(validCompose, "      - DB_USER=devuser\n", "", 1)
	findings := mustParse(t, content).Validate(DefaultRules())
	creds := findingsWithRule(findings, RuleCredentials)
	if len(creds) != 1 || !strings.Contains(creds[0].Message, "DB_USER is not set") {
		t.Errorf("expected missing DB_USER finding, got %v", creds)
	}

	rules := DefaultRules()
	rules.DBService = "postgres"
	findings = mustParse(t, validCompose).Validate(rules)
	missing := findingsWithRule(findings, RuleServiceMissing)
	if len(missing) != 1 || missing[0].Service != "postgres" {
		t.Errorf("expected missing postgres service finding, got %v", missing)
	}
}

func TestValidate_PortConflict(t *testing.T) {
	content := strings.Replace(validCompose, "    image: postgres:13-alpine\n",
		"    image: postgres:13-alpine\n    ports:\n      - \"127.0.0.1:8000:5432\"\n", 1)

	conflicts := findingsWithRule(mustParse(t, content).Validate(DefaultRules()), RulePortConflict)
	if len(conflicts) != 1 || conflicts[0].Service != "db" {
		t.Errorf("expected one port conflict on db, got %v", conflicts)
	}
}

func TestValidate_UndeclaredVolume(t *testing.T) {
	content := strings.Replace(validCompose, "  dev-static-data:\n", "", 1)

	findings := findingsWithRule(mustParse(t, content).Validate(DefaultRules()), RuleVolumeDeclared)
	if len(findings) != 1 || findings[0].Service != "app" || !strings.Contains(findings[0].Message, "dev-static-data") {
		t.Errorf("expected undeclared dev-static-data finding, got %v", findings)
	}
}

func Test_parsePortSpec(t *testing.T) {
	tests := []struct {
		spec      string
		wantOK    bool
		low, high int
		wantIP    string
		wantErr   bool
	}{
		{"8000:8000", true, 8000, 8000, "", false},
		{"127.0.0.1:8000:8000", true, 8000, 8000, "127.0.0.1", false},
		{"0.0.0.0:80:8080/tcp", true, 80, 80, "", false},
		{"[::1]:9000:9000", true, 9000, 9000, "::1", false},
		{"8000", false, 0, 0, "", false},
		{"3000-3002:3000-3002", true, 3000, 3002, "", false},
		{"abc:80", false, 0, 0, "", true},
		{"70000:80", false, 0, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, ok, err := parsePortSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("expected published=%v, got %v", tt.wantOK, ok)
			}
			if ok && (got.low != tt.low || got.high != tt.high || got.ip != tt.wantIP) {
				t.Errorf("binding = %+v, want %d-%d ip %q", got, tt.low, tt.high, tt.wantIP)
			}
		})
	}
}

func Test_hostBindingOverlap(t *testing.T) {
	tests := []struct {
		name     string
		a, b     hostBinding
		wantPort int
		wantOK   bool
	}{
		{"same port", hostBinding{low: 80, high: 80, proto: "tcp"}, hostBinding{low: 80, high: 80, proto: "tcp"}, 80, true},
		{"range contains port", hostBinding{low: 3000, high: 3010, proto: "tcp"}, hostBinding{low: 3005, high: 3005, proto: "tcp"}, 3005, true},
		{"adjacent ranges", hostBinding{low: 3000, high: 3004, proto: "tcp"}, hostBinding{low: 3005, high: 3009, proto: "tcp"}, 0, false},
		{"other protocol", hostBinding{low: 53, high: 53, proto: "tcp"}, hostBinding{low: 53, high: 53, proto: "udp"}, 0, false},
		{"different ips", hostBinding{ip: "127.0.0.1", low: 80, high: 80, proto: "tcp"}, hostBinding{ip: "10.0.0.1", low: 80, high: 80, proto: "tcp"}, 0, false},
		{"wildcard ip", hostBinding{low: 80, high: 80, proto: "tcp"}, hostBinding{ip: "10.0.0.1", low: 80, high: 80, proto: "tcp"}, 80, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, ok := tt.a.overlap(tt.b)
			if ok != tt.wantOK || port != tt.wantPort {
				t.Errorf("overlap = %d, %v; want %d, %v", port, ok, tt.wantPort, tt.wantOK)
			}
		})
	}
}

func TestValidate_FullRangePortConflict(t *testing.T) {
	content := `services:
  a:
    image: busybox
    ports:
      - "1-65535:1-65535"
  b:
    image: busybox
    ports:
      - "1-65535:1-65535"
`
	rules := ValidationRules{AppService: "a", DBService: "b"}
	conflicts := findingsWithRule(mustParse(t, content).Validate(rules), RulePortConflict)
	if len(conflicts) != 1 || conflicts[0].Service != "b" || !strings.Contains(conflicts[0].Message, "host port 1 ") {
		t.Errorf("expected one conflict on b at port 1, got %v", conflicts)
	}
}

func Test_namedVolume(t *testing.T) {
	tests := map[string]string{
		"dev-db-data:/var/lib/postgresql/data": "dev-db-data",
		"data:/data:ro":                        "data",
		"./app:/app":                           "",
		"/srv:/srv":                            "",
		"~/cache:/cache":                       "",
		"/anonymous":                           "",
	}
	for spec, want := range tests {
		got, ok := namedVolume(spec)
		if got != want || ok != (want != "") {
			t.Errorf("namedVolume(%q) = %q, %v; want %q", spec, got, ok, want)
		}
	}
}

func TestLoad_RepositoryComposeFile(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "docker-compose.yml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("docker-compose.yml not found: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if findings := f.Validate(DefaultRules()); len(findings) != 0 {
		t.Errorf("expected repository compose file to be valid, got %v", findings)
	}
}
