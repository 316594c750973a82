package pretty_print

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type templateData struct {
	*cobra.Command
	ShowUsage bool
}

var helpTemplate = `
# Usage
` + "```bash" + `
{{if .Runnable}}{{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}{{.CommandPath}} [command]{{end}}
` + "```" + `

{{if and .ShowUsage (gt (len .Aliases) 0)}}
## Aliases
- {{.NameAndAliases }}
{{end}}

## Description
{{if .ShowUsage}}
{{if gt (len .Long) 0}}
{{.Long }}
{{else}}
{{.Short}}
{{end}}
{{else}}
{{.Short}}
{{end}}

{{if and .ShowUsage .HasExample}}
## Examples
` + "```bash" + `
{{.Example}}
` + "```" + `
{{end}}

{{if .HasAvailableSubCommands}}
## Available Commands

> [!TIP]
> Use ` + "`{{.CommandPath}} [command] --help`" + ` for more information about a command.

| Command | Description |
|-------------|-------------|{{range .Commands}}{{if and .IsAvailableCommand (ne .Name "help")}}
| **` + "`{{.Name}}`" + `** | {{.Short}} |{{end}}{{end}}
{{end}}

{{if and .ShowUsage }}
{{if .HasAvailableLocalFlags}}
{{$localFlags := .LocalFlags | FlagUsages}}
## Flags

| Flag | Type | Usage |
|------|------|-------|{{range $localFlags}}
| ` + "`{{.Flag}}`" + ` | {{.Type}} | {{.Usage}} |{{end}}
{{end}}

{{if .HasAvailableInheritedFlags}}
{{$inheritedFlags := .InheritedFlags | FlagUsages}}
## Global Flags

| Flag | Type | Usage |
|------|------|-------|{{range $inheritedFlags}}
| ` + "`{{.Flag}}`" + ` | {{.Type}} | {{.Usage}} |{{end}}
{{end}}
{{else}}
{{if or .HasAvailableLocalFlags .HasAvailableInheritedFlags}}
{{$localFlags := .LocalFlags | FlagUsages}}
{{$inheritedFlags := .InheritedFlags | FlagUsages}}
## Flags

| Flag | Type | Usage |
|------|------|-------|{{range $localFlags}}
| ` + "`{{.Flag}}`" + ` | {{.Type}} | {{.Usage}} |{{end}}{{range $inheritedFlags}}
| ` + "`{{.Flag}}`" + ` | {{.Type}} | {{.Usage}} |{{end}}
{{end}}
{{end}}`

var templateFuncs = template.FuncMap{
	"FlagUsages": FlagUsages,
}

func PrintHelpText(cmd *cobra.Command, _ []string) {
	fmt.Println(renderHelp(cmd, false))
}

func PrintUsageText(cmd *cobra.Command, _ []string) {
	fmt.Println(renderHelp(cmd, true))
}

func renderHelp(cmd *cobra.Command, showUsage bool) string {
	options := DefaultOptions()

	// if the user wants long output, show the usage text
	if viper.GetBool("output.long") {
		showUsage = true
	}

	tmpl, err := template.New("top").Funcs(templateFuncs).Parse(helpTemplate)
	if err != nil {
		panic(err)
	}

	var buf bytes.Buffer
	data := templateData{Command: cmd, ShowUsage: showUsage}
	if err := tmpl.Execute(&buf, data); err != nil {
		panic(err)
	}

	out, _ := options.MarkdownRenderer(options.Theme).Render(buf.String())
	return out
}

type FlagUsage struct {
	Flag  string
	Type  string
	Usage string
}

// FlagUsages returns a list of flag usages for a flag set.
func FlagUsages(f *pflag.FlagSet) []FlagUsage {
	lines := make([]FlagUsage, 0)

	f.VisitAll(func(flag *pflag.Flag) {
		if flag.Hidden {
			return
		}

		flagStr := ""
		if flag.Shorthand != "" && flag.ShorthandDeprecated == "" {
			flagStr = fmt.Sprintf("-%s, --%s", flag.Shorthand, flag.Name)
		} else {
			flagStr = fmt.Sprintf("    --%s", flag.Name)
		}

		varname, usage := pflag.UnquoteUsage(flag)
		if varname != "" && varname != flag.Value.Type() {
			flagStr = fmt.Sprintf("%s [%s]", flagStr, varname)
		}

		if !defaultIsZeroValue(flag) {
			if flag.Value.Type() == "string" {
				usage += fmt.Sprintf(" (default: %q)", flag.DefValue)
			} else {
				usage += fmt.Sprintf(" (default: %s)", flag.DefValue)
			}
		}
		if len(flag.Deprecated) != 0 {
			usage = fmt.Sprintf("(DEPRECATED: %s) %s", flag.Deprecated, usage)
		}

		lines = append(lines, FlagUsage{
			Flag:  flagStr,
			Type:  flag.Value.Type(),
			Usage: usage,
		})
	})

	return lines
}

// defaultIsZeroValue returns true if the default value for this flag represents
// a zero value.
func defaultIsZeroValue(f *pflag.Flag) bool {
	switch f.Value.Type() {
	case "bool":
		return f.DefValue == "false"
	case "duration":
		return f.DefValue == "0" || f.DefValue == "0s"
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "count", "float32", "float64":
		return f.DefValue == "0"
	case "string":
		return f.DefValue == ""
	case "intSlice", "stringSlice", "stringArray":
		return f.DefValue == "[]"
	default:
		switch f.Value.String() {
		case "false", "<nil>", "", "0":
			return true
		}
		return false
	}
}
