package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stacklok/catalog-ingester/internal/descriptors"
)

// errInvalidDescriptors is returned when a validated file contains errors
var errInvalidDescriptors = errors.New("descriptor file contains errors")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a descriptor file",
		Long: `Parse a descriptor file the way the refresh engine does and report every
component found and every document that was rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args[0])
		},
	}
}

func runValidate(out io.Writer, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	output, err := descriptors.ParseDescriptors(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, component := range output.Components {
		fmt.Fprintf(out, "ok    %s/%s %s\n", component.GetAPIVersion(), component.GetKind(), component.GetName())
	}
	for _, docErr := range output.Errors {
		fmt.Fprintf(out, "error %v\n", docErr)
	}
	fmt.Fprintf(out, "%d components, %d errors\n", len(output.Components), len(output.Errors))

	if len(output.Errors) > 0 {
		return errInvalidDescriptors
	}
	return nil
}
