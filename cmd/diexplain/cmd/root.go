package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sectrean/di-modules"
	"github.com/sectrean/di-modules/internal/errors"
)

// Template names printed with --template.
const (
	TemplateGeneric = "generic"
	TemplateUntyped = "untyped"
)

// NewRootCommand creates the diexplain command.
func NewRootCommand() *cobra.Command {
	var templateOnly bool

	cmd := &cobra.Command{
		Use:   "diexplain [file]",
		Short: "Explain di unknown dependency failures",
		Long: `diexplain reads injection failures as YAML documents and prints the message
the di container reports for each of them.

Failures are read from the given file, or from stdin when no file or "-" is given.
Each document has the fields of di.InjectionFailure:

  consumer: ResourceController
  index: 1
  dependencies: [ResourceService, ""]
  module: ResourceModule`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				in = f
			}

			failures, err := DecodeFailures(in)
			if err != nil {
				return err
			}

			return writeFailures(cmd.OutOrStdout(), failures, templateOnly)
		},
	}

	cmd.Flags().BoolVar(&templateOnly, "template", false,
		"print the name of the chosen template ("+TemplateGeneric+" or "+TemplateUntyped+") instead of the message")

	return cmd
}

// DecodeFailures reads every YAML document from r.
func DecodeFailures(r io.Reader) ([]di.InjectionFailure, error) {
	var failures []di.InjectionFailure

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	for {
		var f di.InjectionFailure
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			return failures, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decode failure %d", len(failures)+1)
		}

		failures = append(failures, f)
	}
}

// Template returns the name of the template used to format f.
func Template(f di.InjectionFailure) string {
	if f.Untyped() {
		return TemplateUntyped
	}
	return TemplateGeneric
}

func writeFailures(w io.Writer, failures []di.InjectionFailure, templateOnly bool) error {
	for i, f := range failures {
		var err error
		switch {
		case templateOnly:
			_, err = fmt.Fprintln(w, Template(f))
		case i > 0:
			_, err = fmt.Fprint(w, "\n"+di.FormatUnknownDependencyMessage(f))
		default:
			_, err = fmt.Fprint(w, di.FormatUnknownDependencyMessage(f))
		}
		if err != nil {
			return err
		}
	}

	return nil
}
