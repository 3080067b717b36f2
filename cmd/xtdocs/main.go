package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xtdb/xtdocs/internal/application/startup"
	"github.com/xtdb/xtdocs/pkg/config"
)

var (
	contentDir string
	outDir     string
	port       string
	skipBuild  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "xtdocs",
	Short: "Build and serve the XTDB documentation site",
	Long: `xtdocs renders the documentation content tree into a static site and
serves it with interactive XTDB playgrounds.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("content-dir") {
			config.ContentDir = contentDir
		}
		if cmd.Flags().Changed("out-dir") {
			config.OutDir = outDir
		}
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the content tree into the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return startup.Build(ctx)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the site and serve pages, playground and admin APIs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startup.Serve(startup.ServeOptions{Port: port, SkipBuild: skipBuild})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Serve with rebuild on change and browser live reload",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startup.Serve(startup.ServeOptions{Port: port, SkipBuild: skipBuild, Watch: true})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&contentDir, "content-dir", config.ContentDir, "content source directory")
	rootCmd.PersistentFlags().StringVar(&outDir, "out-dir", config.OutDir, "static site output directory")

	for _, cmd := range []*cobra.Command{serveCmd, watchCmd} {
		cmd.Flags().StringVarP(&port, "port", "p", config.Port, "HTTP listen port")
		cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "serve the existing content index without building")
	}

	rootCmd.AddCommand(buildCmd, serveCmd, watchCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
