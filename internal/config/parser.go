package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table out of the VM.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseString parses a Lua config from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		platform.InjectPlatformTable(L, info)
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseFile reads and parses the Lua config at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := p.ParseString(ctx, string(data))
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) && parseErr.Path == "" {
			parseErr.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Path    string // Config file, when parsed from disk
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig extracts the config from a Lua state.
// It expects a global "pbsetup" table with the config structure.
func extractConfig(L *lua.LState) (*Config, error) {
	global := L.GetGlobal(luaGlobalPBSetup)
	if global.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'pbsetup' table",
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}

	table := global.(*lua.LTable)
	config := &Config{}
	var err error

	if config.Port, err = getInt(table, luaFieldPort); err != nil {
		return nil, err
	}
	if config.Version, err = getString(table, luaFieldVersion); err != nil {
		return nil, err
	}
	if config.CacheDir, err = getString(table, luaFieldCacheDir); err != nil {
		return nil, err
	}
	if config.ReleasesURL, err = getString(table, luaFieldReleasesURL); err != nil {
		return nil, err
	}
	if config.DownloadBase, err = getString(table, luaFieldDownloadBase); err != nil {
		return nil, err
	}
	if config.Git, err = getBool(table, luaFieldGit); err != nil {
		return nil, err
	}

	switch v := table.RawGetString(luaFieldFallback); v.Type() {
	case lua.LTNil:
	case lua.LTTable:
		config.FallbackVersions = extractStringList(v.(*lua.LTable))
	default:
		return nil, typeError(luaFieldFallback, "list of strings", v)
	}

	switch v := table.RawGetString(luaFieldVerify); v.Type() {
	case lua.LTNil:
	case lua.LTTable:
		verify, err := extractVerify(v.(*lua.LTable))
		if err != nil {
			return nil, err
		}
		config.Verify = verify
	default:
		return nil, typeError(luaFieldVerify, "table", v)
	}

	if err := config.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return config, nil
}

// extractVerify extracts the verify table.
func extractVerify(table *lua.LTable) (VerifyConfig, error) {
	method, err := getString(table, luaFieldMethod)
	if err != nil {
		return VerifyConfig{}, err
	}
	keyring, err := getString(table, luaFieldKeyring)
	if err != nil {
		return VerifyConfig{}, err
	}
	return VerifyConfig{
		Method:  strings.ToLower(strings.TrimSpace(method)),
		Keyring: keyring,
	}, nil
}

// extractStringList extracts the array part of a table, in order.
// Nil holes from platform conditionals and non-string values are skipped.
func extractStringList(table *lua.LTable) []string {
	var out []string
	n := table.MaxN()
	for i := 1; i <= n; i++ {
		v := table.RawGetInt(i)
		if v.Type() != lua.LTString {
			continue
		}
		out = append(out, v.String())
	}
	return out
}

func getString(table *lua.LTable, field string) (string, error) {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return "", nil
	case lua.LTString:
		return v.String(), nil
	default:
		return "", typeError(field, "string", v)
	}
}

func getBool(table *lua.LTable, field string) (bool, error) {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return false, nil
	case lua.LTBool:
		return bool(v.(lua.LBool)), nil
	default:
		return false, typeError(field, "boolean", v)
	}
}

func getInt(table *lua.LTable, field string) (int, error) {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return 0, nil
	case lua.LTNumber:
		f := float64(v.(lua.LNumber))
		if f != math.Trunc(f) {
			return 0, typeError(field, "integer", v)
		}
		return int(f), nil
	default:
		return 0, typeError(field, "integer", v)
	}
}

func typeError(field, want string, got lua.LValue) error {
	return &ParseError{
		Message: fmt.Sprintf("invalid '%s' field", field),
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return err.Error()
	}

	prefix := parseErr.Message
	if parseErr.Path != "" {
		prefix = parseErr.Path + ": " + prefix
	}

	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", prefix, parseErr.Detail)
	}

	// Extract the most relevant part of the error
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", prefix, detail)
}
