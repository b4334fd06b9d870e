package solc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/logger"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"

	"github.com/sirupsen/logrus"
)

// Compiler orchestrates one compilation: resolve the pinned binary, feed it
// the standard-JSON input over stdin with a hard wall-clock timeout, parse
// what comes back. Invocations are stateless and independent, the only
// shared state is the resolver's read-only cache.
type Compiler struct {
	config   *config.Config
	log      *logrus.Entry
	resolver *Resolver
}

func NewCompiler(config *config.Config) (self *Compiler) {
	self = new(Compiler)
	self.config = config
	self.log = logger.NewSublogger("solc-compiler")
	self.resolver = NewResolver(config)
	return
}

func (self *Compiler) WithResolver(resolver *Resolver) *Compiler {
	self.resolver = resolver
	return self
}

// Compile runs the exact compiler the contract declares.
// An abnormal subprocess termination is retried once, every other failure is
// terminal for this contract: missing binaries won't appear mid-run,
// timeouts already burned the budget and diagnostics are deterministic.
func (self *Compiler) Compile(ctx context.Context, contract *model.Contract) (output *Output, err error) {
	binary, err := self.resolver.Resolve(contract.CompilerVersion)
	if err != nil {
		return
	}

	input, err := json.Marshal(NewInput(contract))
	if err != nil {
		return nil, fmt.Errorf("encode compiler input for %s: %w", contract.Id, err)
	}

	output, err = self.invoke(ctx, binary, input)
	if errors.Is(err, ErrProcessCrash) {
		self.log.WithField("contract", contract.Id).WithError(err).Warn("Compiler crashed, retrying once")
		output, err = self.invoke(ctx, binary, input)
	}
	if err != nil {
		return nil, err
	}

	if output.HasErrors() {
		self.log.WithField("contract", contract.Id).Debug(output.ErrorMessages())
		return nil, fmt.Errorf("%w: contract %s", ErrCompileDiagnostics, contract.Id)
	}
	return
}

func (self *Compiler) invoke(ctx context.Context, binary string, input []byte) (output *Output, err error) {
	runCtx, cancel := context.WithTimeout(ctx, self.config.Solc.CompileTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, binary, "--standard-json")
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %s", ErrCompileTimeout, self.config.Solc.CompileTimeout)
		}
		if ctx.Err() != nil {
			// Cancelled from outside, not a compiler failure
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrProcessCrash, err, stderr.String())
	}

	output = new(Output)
	err = json.Unmarshal(stdout.Bytes(), output)
	if err != nil {
		// Exit code 0 with garbage on stdout counts as a crash and gets the
		// same single retry
		return nil, fmt.Errorf("%w: unparsable output: %s", ErrProcessCrash, err)
	}
	return
}
