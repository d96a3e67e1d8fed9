package cmds

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
)

func (p *Executor) PrintUsage() {
	p.WriteUsage(os.Stderr)
}

func (p *Executor) WriteUsage(w io.Writer) {
	writeCommands(w, p.commands, 0)
}

func writeCommands(w io.Writer, commands map[string]*Command, depth int) {
	seen := make(map[*Command]bool)
	for _, name := range slices.Sorted(maps.Keys(commands)) {
		command := commands[name]
		if command == nil || seen[command] || slices.Contains(command.Aliases, name) {
			continue
		}
		seen[command] = true

		names := []string{name}
		names = append(names, command.Aliases...)
		if command.Func.IsValid() {
			for i := range command.Func.Type().NumIn() {
				names[0] += fmt.Sprintf(" <%s>", command.Func.Type().In(i))
			}
		}

		indent := strings.Repeat("  ", depth)
		if command.Description != "" {
			fmt.Fprintf(w, "%s%s\n%s    %s\n", indent, strings.Join(names, ", "), indent, command.Description)
		} else {
			fmt.Fprintf(w, "%s%s\n", indent, strings.Join(names, ", "))
		}

		if len(command.Subs) > 0 {
			writeCommands(w, command.Subs, depth+1)
		}
	}
}
