package compose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	RuleServiceMissing = "service-missing"
	RuleCredentials    = "credentials"
	RuleDBHost         = "db-host"
	RulePortConflict   = "port-conflict"
	RuleVolumeDeclared = "volume-declared"
	RuleInvalidPort    = "invalid-port"
)

// Finding is a single violated property.
type Finding struct {
	Service string
	Rule    string
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Rule, f.Service, f.Message)
}

// EnvPair names an app variable that must equal a database variable.
type EnvPair struct {
	AppKey string
	DBKey  string
}

type ValidationRules struct {
	AppService      string
	DBService       string
	DBHostKey       string
	CredentialPairs []EnvPair
}

// DefaultRules matches the app/db layout of the project's docker-compose.yml.
func DefaultRules() ValidationRules {
	return ValidationRules{
		AppService: "app",
		DBService:  "db",
		DBHostKey:  "DB_HOST",
		CredentialPairs: []EnvPair{
			{AppKey: "DB_NAME", DBKey: "POSTGRES_DB"},
			{AppKey: "DB_USER", DBKey: "POSTGRES_USER"},
			{AppKey: "DB_PASS", DBKey: "POSTGRES_PASSWORD"},
		},
	}
}

// Validate checks credential agreement between app and db, host port conflicts
// and that named volumes are declared. Findings are ordered by service then rule.
func (f *File) Validate(rules ValidationRules) []Finding {
	var findings []Finding
	findings = append(findings, f.checkCredentials(rules)...)
	findings = append(findings, f.checkPorts()...)
	findings = append(findings, f.checkVolumes()...)

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Service != findings[j].Service {
			return findings[i].Service < findings[j].Service
		}
		return findings[i].Rule < findings[j].Rule
	})
	return findings
}

func (f *File) checkCredentials(rules ValidationRules) []Finding {
	var findings []Finding
	app, hasApp := f.Services[rules.AppService]
	db, hasDB := f.Services[rules.DBService]
	if !hasApp {
		findings = append(findings, Finding{Service: rules.AppService, Rule: RuleServiceMissing, Message: "service is not defined"})
	}
	if !hasDB {
		findings = append(findings, Finding{Service: rules.DBService, Rule: RuleServiceMissing, Message: "service is not defined"})
	}
	if !hasApp || !hasDB {
		return findings
	}

	for _, pair := range rules.CredentialPairs {
		appValue, appOK := app.Environment[pair.AppKey]
		dbValue, dbOK := db.Environment[pair.DBKey]
		switch {
		case !appOK:
			findings = append(findings, Finding{Service: rules.AppService, Rule: RuleCredentials,
				Message: fmt.Sprintf("%s is not set", pair.AppKey)})
		case !dbOK:
			findings = append(findings, Finding{Service: rules.DBService, Rule: RuleCredentials,
				Message: fmt.Sprintf("%s is not set", pair.DBKey)})
		case appValue != dbValue:
			findings = append(findings, Finding{Service: rules.AppService, Rule: RuleCredentials,
				Message: fmt.Sprintf("%s=%q does not match %s %s=%q", pair.AppKey, appValue, rules.DBService, pair.DBKey, dbValue)})
		}
	}

	if rules.DBHostKey != "" {
		if host := app.Environment[rules.DBHostKey]; host != rules.DBService {
			findings = append(findings, Finding{Service: rules.AppService, Rule: RuleDBHost,
				Message: fmt.Sprintf("%s=%q does not name service %q", rules.DBHostKey, host, rules.DBService)})
		}
	}
	return findings
}

// hostBinding is a published host port range [low, high].
type hostBinding struct {
	service string
	ip      string
	low     int
	high    int
	proto   string
	spec    string
}

// overlap returns the first host port both bindings publish.
func (b hostBinding) overlap(o hostBinding) (int, bool) {
	if b.proto != o.proto || (b.ip != "" && o.ip != "" && b.ip != o.ip) {
		return 0, false
	}
	low, high := max(b.low, o.low), min(b.high, o.high)
	return low, low <= high
}

func (f *File) checkPorts() []Finding {
	var findings []Finding
	var bindings []hostBinding

	for _, name := range f.serviceNames() {
		for _, spec := range f.Services[name].Ports {
			binding, ok, err := parsePortSpec(spec)
			if err != nil {
				findings = append(findings, Finding{Service: name, Rule: RuleInvalidPort, Message: err.Error()})
				continue
			}
			if ok {
				binding.service = name
				bindings = append(bindings, binding)
			}
		}
	}

	for i := range bindings {
		for j := 0; j < i; j++ {
			if port, ok := bindings[i].overlap(bindings[j]); ok {
				findings = append(findings, Finding{
					Service: bindings[i].service,
					Rule:    RulePortConflict,
					Message: fmt.Sprintf("host port %d (%s) is already published by %s (%s)",
						port, bindings[i].spec, bindings[j].service, bindings[j].spec),
				})
				break
			}
		}
	}
	return findings
}

func (f *File) checkVolumes() []Finding {
	var findings []Finding
	for _, name := range f.serviceNames() {
		for _, spec := range f.Services[name].Volumes {
			volume, ok := namedVolume(spec)
			if !ok {
				continue
			}
			if _, declared := f.Volumes[volume]; !declared {
				findings = append(findings, Finding{Service: name, Rule: RuleVolumeDeclared,
					Message: fmt.Sprintf("named volume %q is not declared at top level", volume)})
			}
		}
	}
	return findings
}

func (f *File) serviceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// namedVolume returns the volume name of a SOURCE:TARGET[:MODE] spec when SOURCE
// is a named volume rather than a host path.
func namedVolume(spec string) (string, bool) {
	source, _, hasTarget := strings.Cut(spec, ":")
	if !hasTarget || source == "" {
		return "", false
	}
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") || strings.HasPrefix(source, "~") || strings.HasPrefix(source, "$") {
		return "", false
	}
	return source, true
}

// parsePortSpec returns the host binding published by [IP:]HOST:CONTAINER[/PROTO].
// A bare CONTAINER port publishes nothing. HOST may be a range.
func parsePortSpec(spec string) (hostBinding, bool, error) {
	spec = strings.TrimSpace(spec)
	mapping, proto, _ := strings.Cut(spec, "/")
	if proto == "" {
		proto = "tcp"
	}

	sep := strings.LastIndex(mapping, ":")
	if sep < 0 {
		if _, _, err := parsePortRange(mapping); err != nil {
			return hostBinding{}, false, fmt.Errorf("invalid port %q: %w", spec, err)
		}
		return hostBinding{}, false, nil
	}

	hostPart := mapping[:sep]
	ip := ""
	if ipSep := strings.LastIndex(hostPart, ":"); ipSep >= 0 {
		ip = strings.Trim(hostPart[:ipSep], "[]")
		hostPart = hostPart[ipSep+1:]
	}
	if ip == "0.0.0.0" || ip == "::" {
		ip = ""
	}
	if hostPart == "" {
		return hostBinding{}, false, nil
	}

	low, high, err := parsePortRange(hostPart)
	if err != nil {
		return hostBinding{}, false, fmt.Errorf("invalid port %q: %w", spec, err)
	}
	if _, _, err := parsePortRange(mapping[sep+1:]); err != nil {
		return hostBinding{}, false, fmt.Errorf("invalid port %q: %w", spec, err)
	}
	return hostBinding{ip: ip, low: low, high: high, proto: proto, spec: spec}, true, nil
}

func parsePortRange(s string) (int, int, error) {
	lowStr, highStr, isRange := strings.Cut(s, "-")
	low, err := parsePort(lowStr)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return low, low, nil
	}
	high, err := parsePort(highStr)
	if err != nil {
		return 0, 0, err
	}
	if high < low {
		return 0, 0, fmt.Errorf("range %s is reversed", s)
	}
	return low, high, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("%q is not a valid port number", s)
	}
	return p, nil
}
