package catalog

import (
	"context"
	"os/exec"

	"github.com/javamon/jvm-exporter/internal/jstat"
)

// runJPS executes `jps -l`, resolving the binary against the configured Java
// home the same way the jstat sampler does.
func runJPS(ctx context.Context, javaHome string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, jstat.ToolPath(javaHome, "jps"), "-l")
	if env := jstat.ToolEnv(javaHome); env != nil {
		cmd.Env = env
	}
	return cmd.Output()
}
