package cmd

import "strings"

// parseFlags splits args into positional arguments and `--key=value` /
// `--key value` / bare `--flag` options, mirroring the teacher's manual
// per-command arg handling (no flag-parsing library is pulled in; none of
// the example repos uses one for a subcommand this shallow).
func parseFlags(args []string) (positional []string, flags map[string]string) {
	flags = map[string]string{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			positional = append(positional, a)
			continue
		}
		name := strings.TrimPrefix(a, "--")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			flags[name[:eq]] = name[eq+1:]
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			flags[name] = args[i+1]
			i++
			continue
		}
		flags[name] = "true"
	}
	return positional, flags
}
