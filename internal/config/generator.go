package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Generator generates Lua configuration code from Go structs.
type Generator struct {
	indent string // Indentation string (default: two spaces)
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
	}
}

// Generate generates Lua code from a Config struct.
// Unset fields are omitted so the built-in defaults stay in effect.
func (g *Generator) Generate(config *Config) (string, error) {
	if err := config.Validate(); err != nil {
		return "", err
	}

	var buf bytes.Buffer

	buf.WriteString("-- pbsetup configuration\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(time.Now().Format(time.RFC3339))
	buf.WriteString("\n--\n")
	buf.WriteString("-- The read-only `platform` table is available, e.g.\n")
	buf.WriteString("--   port = platform.is_macos and 8091 or 8090\n\n")

	buf.WriteString(luaGlobalPBSetup + " = {\n")

	if config.Port != 0 {
		g.writeField(&buf, 1, luaFieldPort, fmt.Sprintf("%d", config.Port))
	}
	if config.Version != "" {
		g.writeField(&buf, 1, luaFieldVersion, g.quoteLuaString(config.Version))
	}
	if config.CacheDir != "" {
		g.writeField(&buf, 1, luaFieldCacheDir, g.quoteLuaString(config.CacheDir))
	}
	if config.ReleasesURL != "" {
		g.writeField(&buf, 1, luaFieldReleasesURL, g.quoteLuaString(config.ReleasesURL))
	}
	if config.DownloadBase != "" {
		g.writeField(&buf, 1, luaFieldDownloadBase, g.quoteLuaString(config.DownloadBase))
	}
	if len(config.FallbackVersions) > 0 {
		g.writeFallback(&buf, config.FallbackVersions)
	}
	g.writeField(&buf, 1, luaFieldGit, fmt.Sprintf("%t", config.Git))
	g.writeVerify(&buf, config.Verify)

	buf.WriteString("}\n")

	return buf.String(), nil
}

func (g *Generator) writeField(buf *bytes.Buffer, depth int, name, value string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(name)
	buf.WriteString(" = ")
	buf.WriteString(value)
	buf.WriteString(",\n")
}

// writeFallback writes the fallback version list.
func (g *Generator) writeFallback(buf *bytes.Buffer, versions []string) {
	buf.WriteString(g.indent)
	buf.WriteString(luaFieldFallback + " = {\n")

	for _, v := range versions {
		buf.WriteString(g.indent)
		buf.WriteString(g.indent)
		buf.WriteString(g.quoteLuaString(v))
		buf.WriteString(",\n")
	}

	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// writeVerify writes the verify section.
func (g *Generator) writeVerify(buf *bytes.Buffer, verify VerifyConfig) {
	method := verify.Method
	if method == "" {
		method = VerifyNone
	}

	buf.WriteString(g.indent)
	buf.WriteString(luaFieldVerify + " = {\n")
	g.writeField(buf, 2, luaFieldMethod, g.quoteLuaString(method))
	if verify.Keyring != "" {
		g.writeField(buf, 2, luaFieldKeyring, g.quoteLuaString(verify.Keyring))
	}
	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
