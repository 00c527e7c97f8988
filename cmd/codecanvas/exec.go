package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/codecanvas/internal/script"
	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

// errScriptFailed marks a script that ended with an uncaught error; the
// error line has already been printed.
var errScriptFailed = errors.New("script failed")

func newExecCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "exec <file.js>",
		Short: "Run a local JavaScript file through the playground console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return execFile(ctx, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "interrupt the script after this long (0 disables)")
	return cmd
}

func execFile(ctx context.Context, path string, out io.Writer) error {
	lang := schema.ClassifyLanguage(schema.FileName(filepath.Base(path)))
	if !lang.Runnable() {
		return fmt.Errorf("%s is %s; only javascript files can run", path, lang)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	log := pslog.Ctx(ctx).With("path", path)
	log.Debug("exec start", "bytes", len(source))
	engine := script.NewEngine()
	err = engine.Execute(ctx, string(source), script.SinkFunc(func(line string) {
		_, _ = fmt.Fprintln(out, line)
	}))
	var scriptErr *script.Error
	if errors.As(err, &scriptErr) {
		_, _ = fmt.Fprintln(out, scriptErr.Error())
		log.Debug("exec finished", "failed", true)
		return errScriptFailed
	}
	if err != nil {
		return err
	}
	log.Debug("exec finished", "failed", false)
	return nil
}
