package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/thesyncim/nativebind"
	"github.com/thesyncim/nativebind/sdl"
	"github.com/thesyncim/nativebind/sdlimage"
	"github.com/thesyncim/nativebind/sdlttf"
)

// builtin is the catalog used when --config is not given.
func builtin() nativebind.Catalog {
	return nativebind.Catalog{
		sdl.LibraryName:      sdl.Candidates,
		sdlimage.LibraryName: sdlimage.Candidates,
		sdlttf.LibraryName:   sdlttf.Candidates,
	}
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nativebind",
		Short: "Inspect native library resolution",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := logging.LogLevelWarn
			if verbose {
				level = logging.LogLevelDebug
			}
			nativebind.SetLogger(logging.NewDefaultLeveledLoggerForScope("nativebind", level, cmd.ErrOrStderr()))
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "YAML catalog of libraries and candidates")
	rootCmd.PersistentFlags().String("dir", "", "Directory searched before the system locations")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every candidate tried")

	cobra.EnableCommandSorting = false

	candidatesCmd := &cobra.Command{
		Use:   "candidates [LIBRARY...]",
		Short: "List the file names tried for each library",
		RunE:  candidatesHandler,
	}
	candidatesCmd.Flags().String("platform", runtime.GOOS, "Platform whose naming rules apply")

	probeCmd := &cobra.Command{
		Use:   "probe [LIBRARY...]",
		Short: "Locate and load each library",
		RunE:  probeHandler,
	}

	symbolsCmd := &cobra.Command{
		Use:   "symbols LIBRARY SYMBOL...",
		Short: "Check which symbols a library exports",
		Args:  cobra.MinimumNArgs(2),
		RunE:  symbolsHandler,
	}

	rootCmd.AddCommand(candidatesCmd, probeCmd, symbolsCmd)
	return rootCmd
}

// catalogFor returns the requested entries of the configured catalog, or
// all of them when names is empty.
func catalogFor(cmd *cobra.Command, names []string) (nativebind.Catalog, []string, error) {
	cat := builtin()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cat, err = nativebind.LoadCatalog(path); err != nil {
			return nil, nil, err
		}
	}
	if len(names) == 0 {
		return cat, cat.Names(), nil
	}
	for _, name := range names {
		if _, ok := cat[name]; !ok {
			return nil, nil, fmt.Errorf("unknown library %q", name)
		}
	}
	return cat, names, nil
}

func searchOptions(cmd *cobra.Command) []nativebind.Option {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return []nativebind.Option{nativebind.WithDir(dir)}
	}
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func candidatesHandler(cmd *cobra.Command, args []string) error {
	cat, names, err := catalogFor(cmd, args)
	if err != nil {
		return err
	}
	platform, _ := cmd.Flags().GetString("platform")

	var data [][]string
	for _, name := range names {
		for _, stem := range cat[name].For(platform) {
			data = append(data, []string{name, stem, strings.Join(nativebind.FileNames(platform, stem), ", ")})
		}
	}
	table := newTable(cmd.OutOrStdout(), "LIBRARY", "STEM", "FILES")
	table.AppendBulk(data)
	table.Render()
	return nil
}

func probeHandler(cmd *cobra.Command, args []string) error {
	cat, names, err := catalogFor(cmd, args)
	if err != nil {
		return err
	}
	opts := searchOptions(cmd)

	var data [][]string
	for _, name := range names {
		found := nativebind.FindCandidates(cat[name], opts...)
		lib, err := nativebind.Resolve(name, cat[name], opts...)
		switch {
		case err == nil:
			data = append(data, []string{name, "loaded", lib.Path()})
		case errors.Is(err, nativebind.ErrLibraryNotFound):
			data = append(data, []string{name, "not found", ""})
		default:
			data = append(data, []string{name, "unloadable", strings.Join(found, ", ")})
		}
	}
	table := newTable(cmd.OutOrStdout(), "LIBRARY", "STATUS", "PATH")
	table.AppendBulk(data)
	table.Render()
	return nil
}

func symbolsHandler(cmd *cobra.Command, args []string) error {
	cat, _, err := catalogFor(cmd, args[:1])
	if err != nil {
		return err
	}
	lib, err := nativebind.Resolve(args[0], cat[args[0]], searchOptions(cmd)...)
	if err != nil {
		return err
	}

	var data [][]string
	missing := 0
	for _, sym := range args[1:] {
		status := "yes"
		if !lib.Has(sym) {
			status = "no"
			missing++
		}
		data = append(data, []string{sym, status})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", lib)
	table := newTable(cmd.OutOrStdout(), "SYMBOL", "EXPORTED")
	table.AppendBulk(data)
	table.Render()
	if missing > 0 {
		return fmt.Errorf("%d of %d symbols missing from %s", missing, len(args)-1, args[0])
	}
	return nil
}
