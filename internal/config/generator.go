package config

import (
	"bytes"
	"strings"
)

// Generator renders a Manifest back to Lua.
// Platform conditionals are already evaluated, so the output is the
// effective manifest for the platform it was parsed on.
type Generator struct {
	indent string // Indentation string (default: two spaces)
}

// NewGenerator creates a new Lua manifest generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
	}
}

// Generate generates Lua code from a Manifest.
// The output parses back into an equal Manifest.
func (g *Generator) Generate(m *Manifest, origin string) (string, error) {
	var buf bytes.Buffer

	buf.WriteString("-- terminal-setup manifest\n")
	if origin != "" {
		buf.WriteString("-- Source: ")
		buf.WriteString(origin)
		buf.WriteString("\n")
	}
	buf.WriteString("\n")

	buf.WriteString(luaGlobalManifest + " = {\n")

	if !isZeroPackages(m.Packages) {
		g.writePackages(&buf, m.Packages)
	}
	if len(m.AUR.Helpers) > 0 || m.AUR.BootstrapRepo != "" {
		g.writeAUR(&buf, m.AUR)
	}
	if len(m.Deploy) > 0 {
		g.writeDeploy(&buf, m.Deploy)
	}
	if len(m.Directories) > 0 {
		g.writeList(&buf, 1, luaFieldDirectories, m.Directories)
	}
	if m.Font != (Font{}) {
		g.writeFont(&buf, m.Font)
	}
	if m.Shell.Target != "" {
		g.line(&buf, 1, luaFieldShell+" = {")
		g.field(&buf, 2, luaFieldTarget, m.Shell.Target)
		g.line(&buf, 1, "},")
	}
	if len(m.Verify) > 0 {
		g.writeVerify(&buf, m.Verify)
	}

	buf.WriteString("}\n")

	return buf.String(), nil
}

func isZeroPackages(p Packages) bool {
	return len(p.Prerequisites)+len(p.Common)+len(p.Arch)+len(p.Fedora)+len(p.Debian)+len(p.AUR) == 0
}

func (g *Generator) writePackages(buf *bytes.Buffer, p Packages) {
	g.line(buf, 1, luaFieldPackages+" = {")
	for _, l := range []struct {
		name  string
		items []string
	}{
		{luaFieldPrerequisites, p.Prerequisites},
		{luaFieldCommon, p.Common},
		{luaFieldArch, p.Arch},
		{luaFieldFedora, p.Fedora},
		{luaFieldDebian, p.Debian},
		{luaFieldAUR, p.AUR},
	} {
		if len(l.items) > 0 {
			g.writeList(buf, 2, l.name, l.items)
		}
	}
	g.line(buf, 1, "},")
}

func (g *Generator) writeAUR(buf *bytes.Buffer, a AURConfig) {
	g.line(buf, 1, luaFieldAUR+" = {")
	if len(a.Helpers) > 0 {
		g.writeList(buf, 2, luaFieldHelpers, a.Helpers)
	}
	if a.BootstrapRepo != "" {
		g.line(buf, 2, luaFieldBootstrap+" = {")
		g.field(buf, 3, luaFieldRepo, a.BootstrapRepo)
		g.field(buf, 3, luaFieldHelper, a.BootstrapHelper)
		g.line(buf, 2, "},")
	}
	g.line(buf, 1, "},")
}

func (g *Generator) writeDeploy(buf *bytes.Buffer, mappings []Mapping) {
	g.line(buf, 1, luaFieldDeploy+" = {")
	for _, mp := range mappings {
		g.line(buf, 2, "{ "+luaFieldSource+" = "+g.quoteLuaString(mp.Source)+", "+
			luaFieldDest+" = "+g.quoteLuaString(mp.Dest)+" },")
	}
	g.line(buf, 1, "},")
}

func (g *Generator) writeFont(buf *bytes.Buffer, f Font) {
	g.line(buf, 1, luaFieldFont+" = {")
	for _, kv := range [][2]string{
		{luaFieldFamily, f.Family},
		{luaFieldURL, f.URL},
		{luaFieldDir, f.Dir},
		{luaFieldSHA256, f.SHA256},
	} {
		if kv[1] != "" {
			g.field(buf, 2, kv[0], kv[1])
		}
	}
	g.line(buf, 1, "},")
}

func (g *Generator) writeVerify(buf *bytes.Buffer, tools []Tool) {
	g.line(buf, 1, luaFieldVerify+" = {")
	for _, t := range tools {
		if len(t.Binaries) == 1 && t.Binaries[0] == t.Name {
			g.line(buf, 2, g.quoteLuaString(t.Name)+",")
			continue
		}
		quoted := make([]string, len(t.Binaries))
		for i, b := range t.Binaries {
			quoted[i] = g.quoteLuaString(b)
		}
		g.line(buf, 2, "{ "+luaFieldName+" = "+g.quoteLuaString(t.Name)+", "+
			luaFieldBinaries+" = { "+strings.Join(quoted, ", ")+" } },")
	}
	g.line(buf, 1, "},")
}

// writeList writes name = { "a", "b" } on one line per item.
func (g *Generator) writeList(buf *bytes.Buffer, depth int, name string, items []string) {
	g.line(buf, depth, name+" = {")
	for _, item := range items {
		g.line(buf, depth+1, g.quoteLuaString(item)+",")
	}
	g.line(buf, depth, "},")
}

func (g *Generator) field(buf *bytes.Buffer, depth int, name, value string) {
	g.line(buf, depth, name+" = "+g.quoteLuaString(value)+",")
}

func (g *Generator) line(buf *bytes.Buffer, depth int, s string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(s)
	buf.WriteString("\n")
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
