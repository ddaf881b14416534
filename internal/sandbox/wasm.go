package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// wasmPageSize is the WebAssembly linear memory page size.
const wasmPageSize = 64 * 1024

// GuestOp selects the operation a WASM guest performs.
type GuestOp string

const (
	OpDetect  GuestOp = "detect"
	OpExtract GuestOp = "extract"
)

// GuestRequest is the JSON document written to the guest's stdin. The
// guest responds with the matching result document on stdout and exits.
type GuestRequest struct {
	Op      GuestOp `json:"op"`
	Output  string  `json:"output"`
	Command string  `json:"command,omitempty"`
}

// RunWASM instantiates code as a fresh WASI command module and executes
// one request against it. The runtime is created and torn down per
// call: guests share nothing across invocations. Memory is capped at
// the configured page limit and the context deadline closes the
// runtime forcefully, without waiting for cooperative exit.
//
// On Completed the guest's stdout bytes are returned. Every other
// outcome carries an error describing the containment.
func (s *Sandbox) RunWASM(ctx context.Context, code []byte, req GuestRequest) ([]byte, Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, OutcomeThrew, fmt.Errorf("encoding guest request: %w", err)
	}

	pages := s.config.MemoryLimitMB * 1024 * 1024 / wasmPageSize
	if pages < 1 {
		pages = 1
	}

	runtimeCfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(uint32(pages)).
		WithCloseOnContextDone(true)

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	defer rt.Close(context.WithoutCancel(ctx))

	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	var stdout, stderr bytes.Buffer
	moduleCfg := wazero.NewModuleConfig().
		WithName("plugin").
		WithArgs("plugin", string(req.Op)).
		WithStdin(bytes.NewReader(payload)).
		WithStdout(&stdout).
		WithStderr(&stderr)
	// No preopened filesystem, no environment, no host functions
	// beyond WASI: the guest has no capability surface to deny.

	_, err = rt.InstantiateWithConfig(ctx, code, moduleCfg)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			// Clean proc_exit(0): success, the response is whatever
			// the guest wrote before exiting.
			return stdout.Bytes(), OutcomeCompleted, nil
		}
		outcome, cerr := classifyGuestError(ctx, err, stderr.String())
		return nil, outcome, cerr
	}
	return stdout.Bytes(), OutcomeCompleted, nil
}

// classifyGuestError maps an instantiation/run error to its outcome.
func classifyGuestError(ctx context.Context, err error, stderr string) (Outcome, error) {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimedOut, fmt.Errorf("guest terminated at deadline: %w", err)
	}

	combined := err.Error() + " " + stderr
	if strings.Contains(combined, "out of memory") ||
		strings.Contains(combined, "memory.grow") ||
		strings.Contains(combined, "max pages") {
		return OutcomeResourceExceeded, fmt.Errorf("guest exceeded memory limit: %w", err)
	}

	return OutcomeThrew, fmt.Errorf("guest failed: %w", err)
}
