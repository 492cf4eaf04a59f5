package reading

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Runner executes external commands. Tests substitute a stub so OCR readers
// can be exercised without the binaries installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *zap.Logger
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(logger *zap.Logger) Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &execRunner{logger: logger}
}

const maxStderrLog = 4 << 10

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var outBuf, errBuf bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	start := time.Now()
	err := cmd.Run()

	stderr := errBuf.Bytes()
	logged := stderr
	if len(logged) > maxStderrLog {
		logged = logged[:maxStderrLog]
	}

	if err != nil {
		r.logger.Warn("exec failed",
			zap.String("cmd", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.ByteString("stderr", logged),
			zap.Error(err),
		)
		return outBuf.Bytes(), stderr, err
	}

	r.logger.Debug("exec ok",
		zap.String("cmd", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("stdout_bytes", outBuf.Len()),
	)
	return outBuf.Bytes(), stderr, nil
}

// Available reports whether a binary resolves on PATH. Used at startup to
// decide which OCR backends join the fallback chain.
func Available(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}
