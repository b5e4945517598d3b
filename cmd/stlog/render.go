package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/willibrandon/stlog/parser"
)

func newRenderCommand() *cobra.Command {
	var showTokens bool

	cmd := &cobra.Command{
		Use:   "render TEMPLATE [ARG...]",
		Short: "Bind arguments to a message template and render it",
		Long: "Bind arguments to a message template and render it.\n\n" +
			"Arguments that parse as JSON keep their JSON type, so {@Order} with\n" +
			`'{"Id":7}' is destructured; anything else is a string.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := parser.Parse(args[0])
			if err != nil {
				return err
			}

			values := make([]any, len(args)-1)
			for i, arg := range args[1:] {
				values[i] = parseArg(arg)
			}
			properties := tmpl.BindProperties(values...)

			out := cmd.OutOrStdout()
			if showTokens {
				fmt.Fprintln(out, renderTokens(tmpl))
			}
			if len(properties) > 0 {
				fmt.Fprintln(out, renderProperties(properties))
			}
			fmt.Fprintln(out, tmpl.Render(properties))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTokens, "tokens", false, "Print the parsed tokens")
	return cmd
}

func parseArg(arg string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return arg
	}
	return v
}

func renderTokens(tmpl *parser.MessageTemplate) string {
	rows := make([][]string, 0, len(tmpl.Tokens))
	for i, token := range tmpl.Tokens {
		row := []string{strconv.Itoa(i), "text", strconv.Quote(token.RawText()), "", ""}
		if prop, ok := token.(*parser.PropertyToken); ok {
			row[1] = "property"
			row[3] = prop.PropertyName
			row[4] = strconv.FormatBool(prop.Destructure)
		}
		rows = append(rows, row)
	}
	return renderTable([]string{"#", "Kind", "Raw", "Property", "Destructure"}, rows, 0)
}

func renderProperties(properties map[string]any) string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, parser.ToText(properties[name])}
	}
	return renderTable([]string{"Property", "Value"}, rows)
}
