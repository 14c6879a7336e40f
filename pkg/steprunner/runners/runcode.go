package runners

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

type CodeRunner struct {
	StepCtx types.ExecutionContext

	payload     codePayload
	interpreter []string
	ext         string
}

type codePayload struct {
	Language     string `yaml:"language"`
	Code         string `yaml:"code"`
	shellPayload `yaml:",inline"`
}

type codeLanguage struct {
	interpreter []string
	ext         string
}

var codeLanguages = map[string]codeLanguage{
	"python":     {interpreter: []string{"python3"}, ext: ".py"},
	"javascript": {interpreter: []string{"node"}, ext: ".js"},
	"bash":       {interpreter: []string{"bash"}, ext: ".sh"},
}

func init() {
	steprunner.RegisterRunnerFactory("runCode", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &CodeRunner{StepCtx: ctx}, nil
	})
}

func (cr *CodeRunner) Validate() error {
	step := cr.StepCtx.Step

	if err := step.DecodePayload(&cr.payload); err != nil {
		return err
	}
	if cr.payload.Code == "" {
		return fmt.Errorf("runCode step %q must define 'code'", step.ID)
	}
	if cr.payload.Command != "" {
		return fmt.Errorf("runCode step %q must not define 'command'", step.ID)
	}

	lang, ok := codeLanguages[strings.ToLower(cr.payload.Language)]
	if !ok {
		return fmt.Errorf("runCode step %q has unsupported language %q", step.ID, cr.payload.Language)
	}
	if _, err := exec.LookPath(lang.interpreter[0]); err != nil {
		return fmt.Errorf("interpreter %q for %s is not a valid command: %w. Make sure it's in your PATH", lang.interpreter[0], cr.payload.Language, err)
	}
	cr.interpreter, cr.ext = lang.interpreter, lang.ext

	return cr.payload.shellPayload.validate("runCode", step.ID)
}

func (cr *CodeRunner) Run(ctx context.Context) types.StepResult {
	logger := cr.StepCtx.Logger

	f, err := os.CreateTemp("", "specrun-code-*"+cr.ext)
	if err != nil {
		return types.Fail("Couldn't create temporary script: %v", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(cr.payload.Code); err != nil {
		f.Close()
		return types.Fail("Couldn't write temporary script: %v", err)
	}
	if err := f.Close(); err != nil {
		return types.Fail("Couldn't write temporary script: %v", err)
	}

	if len(cr.payload.Code) > 1000 {
		logger.Warn().Msg("Long inline code - consider moving it to a script and using runShell.")
	}

	p := cr.payload.shellPayload
	p.Command = cr.interpreter[0]
	p.Args = append(append(append([]string{}, cr.interpreter[1:]...), f.Name()), cr.payload.Args...)
	return executeCommand(ctx, cr.StepCtx, p)
}
